package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// Supabase stores objects in one bucket of Supabase Storage.
type Supabase struct {
	client  *storage_go.Client
	baseURL string
	bucket  string
}

func NewSupabase(supabaseURL, key, bucket string) (*Supabase, error) {
	if supabaseURL == "" || key == "" {
		return nil, errors.New("SUPABASE_URL or SUPABASE_KEY is not configured")
	}
	if bucket == "" {
		bucket = "uploads"
	}
	base := strings.TrimRight(supabaseURL, "/")
	return &Supabase{
		client:  storage_go.NewClient(base+"/storage/v1", key, nil),
		baseURL: base,
		bucket:  bucket,
	}, nil
}

func (s *Supabase) Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error) {
	options := storage_go.FileOptions{
		ContentType: &contentType,
	}
	if _, err := s.client.UploadFile(s.bucket, objectPath, bytes.NewReader(data), options); err != nil {
		return "", fmt.Errorf("upload %s to supabase: %w", objectPath, err)
	}
	return objectPath, nil
}

// URL returns the public URL: <SUPABASE_URL>/storage/v1/object/public/<bucket>/<ref>.
func (s *Supabase) URL(ref string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, ref)
}

func (s *Supabase) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{ref}); err != nil {
		return fmt.Errorf("delete %s from supabase: %w", ref, err)
	}
	return nil
}
