package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	driveFolderMime = "application/vnd.google-apps.folder"
	driveFileFields = "id, name, size, modifiedTime, mimeType, parents, trashed"
)

// GoogleDriveProvider implements Provider for Google Drive. IDs are Drive file
// IDs; paths passed to ListFiles and MoveFile are slash-separated folder paths
// from the Drive root.
type GoogleDriveProvider struct {
	service   *drive.Service
	tokenFile string
}

// NewGoogleDriveProvider creates a new Google Drive provider
func NewGoogleDriveProvider(ctx context.Context, credentialsFile, tokenFile string) (*GoogleDriveProvider, error) {
	// Expand home directory if needed
	tokenFile = expandHome(tokenFile)
	credentialsFile = expandHome(credentialsFile)

	// Read credentials file
	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	// Parse OAuth2 config
	config, err := google.ConfigFromJSON(credBytes, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	// Load or create token
	token, err := loadToken(tokenFile)
	if err != nil {
		// Token doesn't exist, need to authenticate
		token, err = getTokenFromWeb(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to get token: %w", err)
		}

		// Save token for future use
		if err := saveToken(tokenFile, token); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
	}

	service, err := drive.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &GoogleDriveProvider{
		service:   service,
		tokenFile: tokenFile,
	}, nil
}

// ListFiles lists all files in a folder (optionally recursive)
func (p *GoogleDriveProvider) ListFiles(ctx context.Context, dir string, recursive bool) ([]FileInfo, error) {
	folderID, err := p.getFolderID(ctx, dir)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	if err := p.listFilesRecursive(ctx, folderID, cleanDrivePath(dir), recursive, &files); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (p *GoogleDriveProvider) listFilesRecursive(ctx context.Context, folderID, currentPath string, recursive bool, files *[]FileInfo) error {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	pageToken := ""
	for {
		result, err := p.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(" + driveFileFields + ")").
			PageToken(pageToken).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		for _, file := range result.Files {
			info := driveFileInfo(file, path.Join(currentPath, file.Name))
			if !info.IsDir && strings.HasPrefix(file.MimeType, "application/vnd.google-apps.") {
				// Docs, Sheets and friends have no byte content to hash.
				continue
			}
			*files = append(*files, info)

			if recursive && info.IsDir {
				if err := p.listFilesRecursive(ctx, file.Id, info.Path, recursive, files); err != nil {
					return err
				}
			}
		}

		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}

	return nil
}

// getFolderID walks a slash-separated path from the Drive root.
func (p *GoogleDriveProvider) getFolderID(ctx context.Context, dir string) (string, error) {
	dir = cleanDrivePath(dir)
	if dir == "" {
		return "root", nil
	}

	parentID := "root"
	for _, part := range strings.Split(dir, "/") {
		id, found, err := p.findChild(ctx, parentID, part, true)
		if err != nil {
			return "", fmt.Errorf("failed to find folder %s: %w", part, err)
		}
		if !found {
			return "", &PathError{Path: dir, Reason: "does not exist"}
		}
		parentID = id
	}

	return parentID, nil
}

func (p *GoogleDriveProvider) findChild(ctx context.Context, parentID, name string, folder bool) (string, bool, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeDriveQuery(name), parentID)
	if folder {
		query += " and mimeType = '" + driveFolderMime + "'"
	}

	result, err := p.service.Files.List().Q(query).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", false, err
	}
	if len(result.Files) == 0 {
		return "", false, nil
	}
	return result.Files[0].Id, true, nil
}

// Stat describes a file by ID. Trashed files count as gone.
func (p *GoogleDriveProvider) Stat(ctx context.Context, id string) (FileInfo, error) {
	file, err := p.service.Files.Get(id).Fields(driveFileFields).Context(ctx).Do()
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to get file: %w", err)
	}
	return statDriveFile(file)
}

func statDriveFile(file *drive.File) (FileInfo, error) {
	if file.Trashed {
		return FileInfo{}, fmt.Errorf("%s is in the trash: %w", file.Name, os.ErrNotExist)
	}
	info := driveFileInfo(file, file.Name)
	if info.IsDir {
		return FileInfo{}, fmt.Errorf("%s: %w", file.Name, ErrNotRegular)
	}
	return info, nil
}

// OpenFile opens a file for reading
func (p *GoogleDriveProvider) OpenFile(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := p.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	return resp.Body, nil
}

// DeleteFile moves a file to the Drive trash
func (p *GoogleDriveProvider) DeleteFile(ctx context.Context, id string) error {
	if _, err := p.service.Files.Update(id, &drive.File{Trashed: true}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// MoveFile moves a file into the folder of newPath under its base name
func (p *GoogleDriveProvider) MoveFile(ctx context.Context, id string, newPath string) error {
	newPath = cleanDrivePath(newPath)
	parentID, err := p.getFolderID(ctx, path.Dir(newPath))
	if err != nil {
		return fmt.Errorf("failed to find target folder: %w", err)
	}

	name := path.Base(newPath)
	if _, found, err := p.findChild(ctx, parentID, name, false); err != nil {
		return fmt.Errorf("failed to check target: %w", err)
	} else if found {
		return &CollisionError{Src: id, Dst: newPath}
	}

	current, err := p.service.Files.Get(id).Fields("parents").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	_, err = p.service.Files.Update(id, &drive.File{Name: name}).
		AddParents(parentID).
		RemoveParents(strings.Join(current.Parents, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

// Name returns the provider name
func (p *GoogleDriveProvider) Name() string {
	return string(ProviderGoogleDrive)
}

// Close cleans up provider resources
func (p *GoogleDriveProvider) Close() error {
	return nil
}

func driveFileInfo(file *drive.File, displayPath string) FileInfo {
	modTime, _ := time.Parse(time.RFC3339, file.ModifiedTime)
	return FileInfo{
		ID:       file.Id,
		Name:     file.Name,
		Path:     displayPath,
		Size:     file.Size,
		ModTime:  modTime,
		IsDir:    file.MimeType == driveFolderMime,
		MimeType: file.MimeType,
	}
}

func cleanDrivePath(p string) string {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return p
}

func loadToken(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(file string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	fmt.Printf("\nGo to the following link in your browser:\n%s\n\n", authURL)
	fmt.Print("Enter authorization code: ")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	return token, nil
}

// Ensure GoogleDriveProvider implements Provider interface
var _ Provider = (*GoogleDriveProvider)(nil)
