package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"daqpanel/internal/gateway"
	"daqpanel/internal/statuscache"
	"daqpanel/internal/store"

	"github.com/google/uuid"
)

// Mock transaction
type mockTx struct{}

func (m *mockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (m *mockTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (m *mockTx) Commit() error { return nil }

func (m *mockTx) Rollback() error { return nil }

// Mock Store
type mockStore struct {
	beginTxErr error
	pingErr    error

	// Run Hooks
	createRunErr       error
	getRunByIDResp     *store.Run
	getRunByIDErr      error
	listRunsResp       []store.Run
	listRunsErr        error
	activeRunResp      *store.Run
	activeRunErr       error
	finishRunErr       error
	setRunJobUIDsErr   error
	upsertRunNoteErr   error
	getRunNoteResp     *store.RunNote
	getRunNoteErr      error

	// Run Type Hooks
	createRunTypeErr       error
	getRunTypeResp         *store.RunType
	getRunTypeErr          error
	listRunTypesResp       []store.RunType
	listRunTypesErr        error
	updateRunTypeErr       error
	deleteRunTypeErr       error
	linkTemplateErr        error
	unlinkTemplateErr      error
	runTypeTemplatesResp   []store.Template
	runTypeTemplatesErr    error
	setParamDefaultErr     error
	paramDefaultsResp      map[string]string
	paramDefaultsErr       error

	// Template Hooks
	createTemplateErr  error
	getTemplateResp    *store.Template
	getTemplateErr     error
	listTemplatesResp  []store.Template
	listTemplatesErr   error
	updateTemplateErr  error
	deleteTemplateErr  error
	addParameterErr    error
	deleteParameterErr error

	// Message Hooks
	createMessageErr error
	listMessagesResp []store.Message
	listMessagesErr  error

	// Webhook Hooks
	createWebhookErr      error
	getWebhookResp        *store.Webhook
	getWebhookErr         error
	listWebhooksResp      []store.Webhook
	listWebhooksErr       error
	activeWebhooksResp    []store.Webhook
	activeWebhooksErr     error
	updateWebhookErr      error
	deleteWebhookErr      error

	// Spies (to verify arguments passed by handlers)
	capturedRun          *store.Run
	capturedFinishStatus store.RunStatus
	capturedMessage      *store.Message
	capturedNote         *store.RunNote
	finishRunCalls       int
}

func (m *mockStore) BeginTx(ctx context.Context) (store.Tx, error) {
	if m.beginTxErr != nil {
		return nil, m.beginTxErr
	}
	return &mockTx{}, nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) CreateRun(ctx context.Context, tx store.DBTransaction, run *store.Run) error {
	m.capturedRun = run
	return m.createRunErr
}

func (m *mockStore) GetRunByID(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	return m.getRunByIDResp, m.getRunByIDErr
}

func (m *mockStore) ListRuns(ctx context.Context, limit, offset int) ([]store.Run, error) {
	return m.listRunsResp, m.listRunsErr
}

func (m *mockStore) GetActiveRunForClient(ctx context.Context, tx store.DBTransaction, clientID string) (*store.Run, error) {
	return m.activeRunResp, m.activeRunErr
}

func (m *mockStore) FinishRun(ctx context.Context, tx store.DBTransaction, id uuid.UUID, status store.RunStatus) error {
	m.finishRunCalls++
	m.capturedFinishStatus = status
	return m.finishRunErr
}

func (m *mockStore) SetRunJobUIDs(ctx context.Context, tx store.DBTransaction, id uuid.UUID, uids []string) error {
	return m.setRunJobUIDsErr
}

func (m *mockStore) UpsertRunNote(ctx context.Context, note *store.RunNote) error {
	m.capturedNote = note
	return m.upsertRunNoteErr
}

func (m *mockStore) GetRunNote(ctx context.Context, runID uuid.UUID) (*store.RunNote, error) {
	if m.getRunNoteErr != nil {
		return nil, m.getRunNoteErr
	}
	if m.getRunNoteResp == nil {
		return nil, store.ErrNotFound
	}
	return m.getRunNoteResp, nil
}

func (m *mockStore) CreateRunType(ctx context.Context, rt *store.RunType) error {
	return m.createRunTypeErr
}

func (m *mockStore) GetRunTypeByID(ctx context.Context, id uuid.UUID) (*store.RunType, error) {
	return m.getRunTypeResp, m.getRunTypeErr
}

func (m *mockStore) ListRunTypes(ctx context.Context) ([]store.RunType, error) {
	return m.listRunTypesResp, m.listRunTypesErr
}

func (m *mockStore) UpdateRunType(ctx context.Context, rt *store.RunType) error {
	return m.updateRunTypeErr
}

func (m *mockStore) DeleteRunType(ctx context.Context, id uuid.UUID) error {
	return m.deleteRunTypeErr
}

func (m *mockStore) LinkTemplate(ctx context.Context, runTypeID, templateID uuid.UUID) error {
	return m.linkTemplateErr
}

func (m *mockStore) UnlinkTemplate(ctx context.Context, runTypeID, templateID uuid.UUID) error {
	return m.unlinkTemplateErr
}

func (m *mockStore) ListTemplatesForRunType(ctx context.Context, runTypeID uuid.UUID) ([]store.Template, error) {
	return m.runTypeTemplatesResp, m.runTypeTemplatesErr
}

func (m *mockStore) SetParameterDefault(ctx context.Context, runTypeID uuid.UUID, paramName, value string) error {
	return m.setParamDefaultErr
}

func (m *mockStore) ListParameterDefaults(ctx context.Context, runTypeID uuid.UUID) (map[string]string, error) {
	return m.paramDefaultsResp, m.paramDefaultsErr
}

func (m *mockStore) CreateTemplate(ctx context.Context, t *store.Template) error {
	return m.createTemplateErr
}

func (m *mockStore) GetTemplateByID(ctx context.Context, id uuid.UUID) (*store.Template, error) {
	return m.getTemplateResp, m.getTemplateErr
}

func (m *mockStore) ListTemplates(ctx context.Context, kind *store.TemplateKind) ([]store.Template, error) {
	return m.listTemplatesResp, m.listTemplatesErr
}

func (m *mockStore) UpdateTemplate(ctx context.Context, t *store.Template) error {
	return m.updateTemplateErr
}

func (m *mockStore) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return m.deleteTemplateErr
}

func (m *mockStore) AddParameter(ctx context.Context, p *store.TemplateParameter) error {
	return m.addParameterErr
}

func (m *mockStore) DeleteParameter(ctx context.Context, id uuid.UUID) error {
	return m.deleteParameterErr
}

func (m *mockStore) CreateMessage(ctx context.Context, msg *store.Message) error {
	m.capturedMessage = msg
	return m.createMessageErr
}

func (m *mockStore) ListMessages(ctx context.Context, runID *uuid.UUID, clientID *string, limit, offset int) ([]store.Message, error) {
	return m.listMessagesResp, m.listMessagesErr
}

func (m *mockStore) CreateWebhook(ctx context.Context, w *store.Webhook) error {
	return m.createWebhookErr
}

func (m *mockStore) GetWebhookByID(ctx context.Context, id uuid.UUID) (*store.Webhook, error) {
	return m.getWebhookResp, m.getWebhookErr
}

func (m *mockStore) ListWebhooks(ctx context.Context) ([]store.Webhook, error) {
	return m.listWebhooksResp, m.listWebhooksErr
}

func (m *mockStore) ListActiveWebhooks(ctx context.Context, trigger store.WebhookTrigger) ([]store.Webhook, error) {
	return m.activeWebhooksResp, m.activeWebhooksErr
}

func (m *mockStore) UpdateWebhook(ctx context.Context, w *store.Webhook) error {
	return m.updateWebhookErr
}

func (m *mockStore) DeleteWebhook(ctx context.Context, id uuid.UUID) error {
	return m.deleteWebhookErr
}

// Mock status cache
type mockCache struct {
	snapshots map[string]*statuscache.Snapshot
	logs      map[string][]gateway.LogEntry
	clients   []gateway.ClientInfo
}

func (m *mockCache) Status(clientID string) (*statuscache.Snapshot, bool) {
	snap, ok := m.snapshots[clientID]
	return snap, ok
}

func (m *mockCache) Logs(clientID string) []gateway.LogEntry {
	return m.logs[clientID]
}

func (m *mockCache) Clients() []gateway.ClientInfo {
	return m.clients
}

// Mock gateway
type mockGateway struct {
	restartErr        error
	stopAllErr        error
	runJobResp        *gateway.RunJobResult
	runJobErr         error
	stopJobErr        error
	sendMessageErr    error
	jobSchemasResp    json.RawMessage
	jobSchemasErr     error
	msgSchemasResp    json.RawMessage
	msgSchemasErr     error

	// Spies
	capturedConfig    string
	capturedMsgType   string
	capturedPayload   json.RawMessage
	capturedTargetUID *string
	stopJobCalls      int
}

func (m *mockGateway) Restart(ctx context.Context, clientID string) error {
	return m.restartErr
}

func (m *mockGateway) StopAll(ctx context.Context, clientID string) error {
	return m.stopAllErr
}

func (m *mockGateway) RunJob(ctx context.Context, clientID, configText string) (*gateway.RunJobResult, error) {
	m.capturedConfig = configText
	return m.runJobResp, m.runJobErr
}

func (m *mockGateway) StopJob(ctx context.Context, clientID, jobUID string, remove bool) error {
	m.stopJobCalls++
	return m.stopJobErr
}

func (m *mockGateway) SendMessage(ctx context.Context, clientID, msgType string, payload json.RawMessage, targetUID *string) error {
	m.capturedMsgType = msgType
	m.capturedPayload = payload
	m.capturedTargetUID = targetUID
	return m.sendMessageErr
}

func (m *mockGateway) JobSchemas(ctx context.Context, clientID string) (json.RawMessage, error) {
	return m.jobSchemasResp, m.jobSchemasErr
}

func (m *mockGateway) MessageSchemas(ctx context.Context, clientID string) (json.RawMessage, error) {
	return m.msgSchemasResp, m.msgSchemasErr
}

// Mock notifier. Notifications fire from goroutines, so the spy is locked.
type mockNotifier struct {
	mu     sync.Mutex
	events []string
}

func (m *mockNotifier) NotifyRun(ctx context.Context, event string, run *store.Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockNotifier) NotifyMessage(ctx context.Context, event string, msg *store.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func newTestHandlers(s *mockStore, cache *mockCache, daq *mockGateway) *Handlers {
	if cache == nil {
		cache = &mockCache{}
	}
	if daq == nil {
		daq = &mockGateway{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(s, cache, daq, &mockNotifier{}, logger)
}
