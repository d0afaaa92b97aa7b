// Package gdrive uploads finished session notes to a Google Drive folder as
// Google Docs. Export is best-effort; the pipeline treats failures as
// non-fatal.
package gdrive

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type Exporter struct {
	service  *drive.Service
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewExporter(ctx context.Context, credPath, folderID string) (*Exporter, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Exporter{
		service:  svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

// ExportFinalNotes creates a Google Doc from the session's final notes, or
// updates the existing one when the session is exported again.
func (e *Exporter) ExportFinalNotes(ctx context.Context, sessionID, title, markdown string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := strings.TrimSpace(title)
	if name == "" {
		name = fmt.Sprintf("lectern-%s", sessionID)
	}

	body := strings.NewReader(markdown)

	if fileID, ok := e.fileIDs[sessionID]; ok {
		_, err := e.service.Files.Update(fileID, &drive.File{Name: name}).
			Media(body, googleapi.ContentType("text/markdown")).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		return nil
	}

	doc, err := e.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.document",
		Parents:  []string{e.folderID},
	}).Media(body, googleapi.ContentType("text/markdown")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("drive create: %w", err)
	}

	e.fileIDs[sessionID] = doc.Id
	return nil
}
