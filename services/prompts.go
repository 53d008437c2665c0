package services

import (
	"fmt"
	"strings"
)

const (
	DefaultTemplate = "Explainer"
	DefaultLanguage = "English"
)

// Templates are the script styles offered on the create page.
var Templates = []string{"Explainer", "News Recap", "Interview", "Storytelling"}

// Languages a podcast can be tagged with.
var Languages = []string{
	"English", "Hindi", "Gujarati", "Tamil", "Telugu", "Bengali", "Marathi",
	"Kannada", "Malayalam", "Punjabi", "Odia", "Assamese", "Urdu", "Other",
}

const scriptSystemPrompt = "You are a podcast script writer. Write a clear, engaging script suitable for text-to-speech."

const thumbnailSystemPrompt = "You craft concise, vivid image prompts for podcast thumbnails. " +
	"You extract key visual elements and style cues from the script, avoid text-in-image, " +
	"and return a single prompt line suitable for image generation."

type ScriptRequest struct {
	Keywords string
	Template string
	Language string
	Minutes  int
}

// targetLength renders the spoken length hint, "2-4 minutes" when unset.
func targetLength(minutes int) string {
	switch {
	case minutes == 1:
		return "1 minute"
	case minutes > 1:
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return "2-4 minutes"
	}
}

// ScriptPrompt builds the full prompt sent to the script writer.
func ScriptPrompt(req ScriptRequest) string {
	tpl := strings.TrimSpace(req.Template)
	if tpl == "" {
		tpl = DefaultTemplate
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = DefaultLanguage
	}

	var b strings.Builder
	b.WriteString(scriptSystemPrompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Generate a %s style podcast script in %s based on these keywords: %s.\n",
		tpl, lang, strings.TrimSpace(req.Keywords))
	fmt.Fprintf(&b, "Target length: about %s of spoken audio.\n", targetLength(req.Minutes))
	b.WriteString("Include an intro hook, 2-3 key points with smooth transitions, and a short outro. ")
	b.WriteString("Avoid SSML unless necessary. Return plain text only, no markdown.")
	return b.String()
}

// ThumbnailPrompt builds the prompt that turns a script into one image
// prompt line.
func ThumbnailPrompt(script, title, keywords string) string {
	if strings.TrimSpace(title) == "" {
		title = "Podcast"
	}

	var b strings.Builder
	b.WriteString(thumbnailSystemPrompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Title: %s\nKeywords: %s\nScript:\n%s\n\n", title, keywords, script)
	b.WriteString("Return ONE concise prompt describing: main subject, setting, mood, color palette, ")
	b.WriteString("and 2-3 key visual elements derived from the content. Prefer cinematic, high-contrast, ")
	b.WriteString("modern flat illustration or photorealistic depending on context. ")
	b.WriteString("Do NOT include words or typography in the image.")
	return b.String()
}

// FirstLine trims model output down to its first non-empty line.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return strings.Trim(line, "\"")
		}
	}
	return ""
}
