package tree

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appscope/appscope/pkg/config"
	"github.com/appscope/appscope/pkg/directory"
)

// fakeClient is an in-memory directory.Client. Apps are keyed by object id;
// listings return them in insertion order. Every remote call bumps calls so
// tests can assert "no wire traffic happened".
type fakeClient struct {
	mu      sync.Mutex
	apps    []*directory.Application
	owners  map[string][]directory.User
	deleted []directory.AppSummary

	calls int64

	listErr  error
	countErr error
	getErr   map[string]error
	ownerErr error

	lastListOpts directory.ListOptions
}

func newFakeClient(apps ...*directory.Application) *fakeClient {
	return &fakeClient{
		apps:   apps,
		owners: make(map[string][]directory.User),
		getErr: make(map[string]error),
	}
}

func (f *fakeClient) callCount() int64 {
	return atomic.LoadInt64(&f.calls)
}

func (f *fakeClient) bump() {
	atomic.AddInt64(&f.calls, 1)
}

func (f *fakeClient) summaries() []directory.AppSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]directory.AppSummary, 0, len(f.apps))
	for _, a := range f.apps {
		out = append(out, directory.AppSummary{ObjectID: a.ObjectID, AppID: a.AppID, DisplayName: a.DisplayName})
	}
	return out
}

func (f *fakeClient) CountOwned(ctx context.Context, opts directory.ListOptions) (int, error) {
	return f.CountAll(ctx, opts)
}

func (f *fakeClient) CountAll(ctx context.Context, opts directory.ListOptions) (int, error) {
	f.bump()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.apps), nil
}

func (f *fakeClient) ListOwned(ctx context.Context, opts directory.ListOptions) ([]directory.AppSummary, error) {
	return f.ListAll(ctx, opts)
}

func (f *fakeClient) ListAll(ctx context.Context, opts directory.ListOptions) ([]directory.AppSummary, error) {
	f.bump()
	f.mu.Lock()
	f.lastListOpts = opts
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.summaries(), nil
}

func (f *fakeClient) ListDeleted(ctx context.Context, opts directory.ListOptions) ([]directory.AppSummary, error) {
	f.bump()
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]directory.AppSummary(nil), f.deleted...), nil
}

func (f *fakeClient) GetPartial(ctx context.Context, objectID string, fields []string, expandOwners bool) (*directory.Application, error) {
	f.bump()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[objectID]; err != nil {
		return nil, err
	}
	for _, a := range f.apps {
		if a.ObjectID == objectID {
			clone := *a
			if !expandOwners {
				clone.Owners = nil
			}
			return &clone, nil
		}
	}
	return nil, directory.NewError(directory.CodeNotFound, "application %s not found", objectID)
}

func (f *fakeClient) GetOwners(ctx context.Context, objectID string) ([]directory.User, error) {
	f.bump()
	if f.ownerErr != nil {
		return nil, f.ownerErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owners[objectID], nil
}

func (f *fakeClient) Update(ctx context.Context, objectID string, patch map[string]any) error {
	f.bump()
	return nil
}

func (f *fakeClient) AddPassword(ctx context.Context, objectID, displayName string, end time.Time) (*directory.PasswordCredential, error) {
	f.bump()
	return &directory.PasswordCredential{KeyID: "new-key", DisplayName: displayName, EndDateTime: end, SecretText: "s3cret"}, nil
}

func (f *fakeClient) RemovePassword(ctx context.Context, objectID, keyID string) error {
	f.bump()
	return nil
}

func (f *fakeClient) RemoveKey(ctx context.Context, objectID, keyID string) error {
	f.bump()
	return nil
}

func (f *fakeClient) AddOwner(ctx context.Context, objectID, userObjectID string) error {
	f.bump()
	return nil
}

func (f *fakeClient) RemoveOwner(ctx context.Context, objectID, userObjectID string) error {
	f.bump()
	return nil
}

func (f *fakeClient) Delete(ctx context.Context, objectID string) error {
	f.bump()
	return nil
}

func (f *fakeClient) Restore(ctx context.Context, objectID string) error {
	f.bump()
	return nil
}

var _ directory.Client = (*fakeClient)(nil)

// fakeSettings is an in-memory SettingsStore.
type fakeSettings struct {
	mu       sync.Mutex
	settings config.Settings
}

func newFakeSettings(s config.Settings) *fakeSettings {
	return &fakeSettings{settings: s}
}

func (f *fakeSettings) Get() config.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeSettings) SetUseEventualConsistency(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.UseEventualConsistency = v
	return nil
}

func (f *fakeSettings) SetSuppressCountAdvisory(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.SuppressCountAdvisory = v
	return nil
}

// recordingPrompter captures messages and answers Ask with a canned choice.
type recordingPrompter struct {
	mu     sync.Mutex
	infos  []string
	errors []string
	asked  []string
	answer string
}

func (p *recordingPrompter) Info(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.infos = append(p.infos, message)
}

func (p *recordingPrompter) Error(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, message)
}

func (p *recordingPrompter) Ask(ctx context.Context, message string, choices ...string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, message)
	return p.answer
}

func (p *recordingPrompter) errorCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.errors)
}

func testApp(objectID, name string) *directory.Application {
	return &directory.Application{
		ObjectID:       objectID,
		AppID:          "app-" + objectID,
		DisplayName:    name,
		SignInAudience: "AzureADMyOrg",
	}
}

func defaultTestSettings() config.Settings {
	s := config.DefaultSettings()
	s.ShowApplicationCountWarning = false
	return s
}

func newTestEngine(client directory.Client, settings config.Settings) *Engine {
	return NewEngine(Options{
		Client:   client,
		Settings: newFakeSettings(settings),
	})
}
