package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// MockDriveClient is an in-memory Drive for testing.
// Folders and files are keyed by parent folder ID; change pages by token.
type MockDriveClient struct {
	mu sync.Mutex

	Folders    map[string][]domain.DriveFolder
	Files      map[string][]domain.DriveFile
	Bytes      map[string][]byte
	Pages      map[string]*domain.ChangesPage
	StartToken string

	// Error injection
	ListFoldersErr error
	ListFilesErr   map[string]error
	ListChangesErr map[string]error
	StartTokenErr  error
	WatchErr       error
	// FailuresBeforeSuccess makes ListFiles fail N times per folder before succeeding
	FailuresBeforeSuccess map[string]int

	// Recorded calls
	ListFoldersCalls int
	StartTokenCalls  int
	ListFilesCalls   map[string]int
	ListChangesCalls []string
	Watches          []domain.WatchRequest
	Stopped          []string
}

// NewMockDriveClient creates an empty MockDriveClient
func NewMockDriveClient() *MockDriveClient {
	return &MockDriveClient{
		Folders:               make(map[string][]domain.DriveFolder),
		Files:                 make(map[string][]domain.DriveFile),
		Bytes:                 make(map[string][]byte),
		Pages:                 make(map[string]*domain.ChangesPage),
		ListFilesErr:          make(map[string]error),
		ListChangesErr:        make(map[string]error),
		FailuresBeforeSuccess: make(map[string]int),
		ListFilesCalls:        make(map[string]int),
	}
}

func (m *MockDriveClient) ListFolders(ctx context.Context, parentID string) ([]domain.DriveFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListFoldersCalls++
	if m.ListFoldersErr != nil {
		return nil, m.ListFoldersErr
	}
	return append([]domain.DriveFolder(nil), m.Folders[parentID]...), nil
}

func (m *MockDriveClient) ListFiles(ctx context.Context, folderID string) ([]domain.DriveFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListFilesCalls[folderID]++
	if n := m.FailuresBeforeSuccess[folderID]; n > 0 {
		m.FailuresBeforeSuccess[folderID] = n - 1
		return nil, fmt.Errorf("transient error listing %s", folderID)
	}
	if err := m.ListFilesErr[folderID]; err != nil {
		return nil, err
	}
	return append([]domain.DriveFile(nil), m.Files[folderID]...), nil
}

func (m *MockDriveClient) FetchBytes(ctx context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Bytes[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (m *MockDriveClient) GetStartPageToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartTokenCalls++
	if m.StartTokenErr != nil {
		return "", m.StartTokenErr
	}
	return m.StartToken, nil
}

func (m *MockDriveClient) ListChanges(ctx context.Context, token string) (*domain.ChangesPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListChangesCalls = append(m.ListChangesCalls, token)
	if err := m.ListChangesErr[token]; err != nil {
		return nil, err
	}
	page, ok := m.Pages[token]
	if !ok {
		return &domain.ChangesPage{NewStartPageToken: token}, nil
	}
	cp := *page
	return &cp, nil
}

func (m *MockDriveClient) Watch(ctx context.Context, req domain.WatchRequest) (*domain.WebhookChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Watches = append(m.Watches, req)
	if m.WatchErr != nil {
		return nil, m.WatchErr
	}
	return &domain.WebhookChannel{ID: req.ChannelID, ResourceID: "resource-" + req.ChannelID}, nil
}

func (m *MockDriveClient) StopChannel(ctx context.Context, channelID, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stopped = append(m.Stopped, channelID)
	return nil
}

// Helper methods for testing

// AddFolder adds a subfolder under parentID.
func (m *MockDriveClient) AddFolder(parentID, id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Folders[parentID] = append(m.Folders[parentID], domain.DriveFolder{ID: id, Name: name})
}

// AddImage adds a PNG file under folderID.
func (m *MockDriveClient) AddImage(folderID, id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[folderID] = append(m.Files[folderID], domain.DriveFile{
		ID:       id,
		Name:     name,
		MimeType: "image/png",
		Parents:  []string{folderID},
	})
}

// RemoveImage removes a file from folderID's listing.
func (m *MockDriveClient) RemoveImage(folderID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	files := m.Files[folderID][:0]
	for _, f := range m.Files[folderID] {
		if f.ID != id {
			files = append(files, f)
		}
	}
	m.Files[folderID] = files
}
