package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2/google"
)

const (
	defaultDriveURL = "https://www.googleapis.com/drive/v3"
	driveScope      = "https://www.googleapis.com/auth/drive.readonly"

	mimeFolder    = "application/vnd.google-apps.folder"
	mimeGoogleDoc = "application/vnd.google-apps.document"
	mimeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePDF       = "application/pdf"
	mimeText      = "text/plain"
)

// Drive crawls a Google Drive folder and its subfolders.
type Drive struct {
	client   *http.Client
	baseURL  string
	folderID string
	since    time.Time
	logger   *slog.Logger
}

// NewDrive authenticates with a service-account key file. A non-zero
// since limits the crawl to files modified after it.
func NewDrive(ctx context.Context, credentialsFile, folderID string, since time.Time, logger *slog.Logger) (*Drive, error) {
	key, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(key, driveScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	return NewDriveWithClient(conf.Client(ctx), folderID, since, logger), nil
}

// NewDriveWithClient uses an already authorised HTTP client.
func NewDriveWithClient(client *http.Client, folderID string, since time.Time, logger *slog.Logger) *Drive {
	return &Drive{
		client:   client,
		baseURL:  defaultDriveURL,
		folderID: folderID,
		since:    since,
		logger:   logger,
	}
}

func (d *Drive) Name() string { return "drive" }

type driveFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Size         int64     `json:"size,string,omitempty"`
}

type driveList struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []driveFile `json:"files"`
}

// List crawls the folder tree. PDFs are listed so Read can report them.
func (d *Drive) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	seen := make(map[string]bool)
	queue := []string{d.folderID}

	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]
		if seen[folder] {
			continue
		}
		seen[folder] = true

		files, err := d.listFolder(ctx, folder)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			switch f.MimeType {
			case mimeFolder:
				queue = append(queue, f.ID)
				continue
			case mimeGoogleDoc, mimeDocx, mimePDF, mimeText:
			default:
				continue
			}
			if !d.since.IsZero() && !f.ModifiedTime.After(d.since) {
				continue
			}
			docs = append(docs, Document{
				ID:         f.ID,
				Name:       f.Name,
				MimeType:   f.MimeType,
				ModifiedAt: f.ModifiedTime,
				Size:       f.Size,
			})
		}
	}

	d.logger.Info("drive crawl complete", "folders", len(seen), "documents", len(docs))
	return docs, nil
}

func (d *Drive) listFolder(ctx context.Context, folderID string) ([]driveFile, error) {
	var out []driveFile
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
		q.Set("fields", "nextPageToken, files(id, name, mimeType, modifiedTime, size)")
		q.Set("pageSize", "1000")
		q.Set("supportsAllDrives", "true")
		q.Set("includeItemsFromAllDrives", "true")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		body, err := d.get(ctx, d.baseURL+"/files?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}
		var page driveList
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parse folder listing: %w", err)
		}
		out = append(out, page.Files...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// Read exports Google Docs as plain text and downloads DOCX and text
// files. PDFs are unsupported.
func (d *Drive) Read(ctx context.Context, doc Document) (string, error) {
	id := url.PathEscape(doc.ID)
	switch doc.MimeType {
	case mimeGoogleDoc:
		body, err := d.get(ctx, d.baseURL+"/files/"+id+"/export?mimeType="+url.QueryEscape(mimeText))
		if err != nil {
			return "", fmt.Errorf("export %s: %w", doc.Name, err)
		}
		return string(body), nil
	case mimeDocx:
		body, err := d.get(ctx, d.baseURL+"/files/"+id+"?alt=media&supportsAllDrives=true")
		if err != nil {
			return "", fmt.Errorf("download %s: %w", doc.Name, err)
		}
		return DocxText(body)
	case mimeText:
		body, err := d.get(ctx, d.baseURL+"/files/"+id+"?alt=media&supportsAllDrives=true")
		if err != nil {
			return "", fmt.Errorf("download %s: %w", doc.Name, err)
		}
		return string(body), nil
	default:
		return "", fmt.Errorf("%w: %s (%s)", ErrUnsupported, doc.Name, doc.MimeType)
	}
}

func (d *Drive) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drive API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
