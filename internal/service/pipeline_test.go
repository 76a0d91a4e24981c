package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mesmaili/alias-sms/internal/auth"
	"github.com/mesmaili/alias-sms/internal/cache"
	"github.com/mesmaili/alias-sms/internal/model"
	"github.com/mesmaili/alias-sms/internal/service"
	"github.com/mesmaili/alias-sms/internal/store"
)

type fakeAliasStore struct {
	entries map[string]model.AliasEntry // keyed by normalized alias
	lookups int
}

var _ store.AliasStore = (*fakeAliasStore)(nil)

func (f *fakeAliasStore) Upsert(ctx context.Context, entry model.AliasEntry) (model.AliasEntry, error) {
	return model.AliasEntry{}, errors.New("not implemented")
}

func (f *fakeAliasStore) FindByID(ctx context.Context, id string) (model.AliasEntry, error) {
	return model.AliasEntry{}, errors.New("not implemented")
}

func (f *fakeAliasStore) FindByNormalizedAlias(ctx context.Context, key string) (model.AliasEntry, error) {
	f.lookups++
	e, ok := f.entries[key]
	if !ok {
		return model.AliasEntry{}, model.ErrAliasNotFound
	}
	return e, nil
}

func (f *fakeAliasStore) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeAliasStore) List(ctx context.Context) ([]model.AliasEntry, error) { return nil, nil }

type fakeLogStore struct {
	appended []model.SmsLogEntry
}

var _ store.LogStore = (*fakeLogStore)(nil)

func (f *fakeLogStore) Append(ctx context.Context, entry model.SmsLogEntry) error {
	f.appended = append(f.appended, entry)
	return nil
}

func (f *fakeLogStore) List(ctx context.Context, limit, offset int) ([]model.SmsLogEntry, error) {
	return f.appended, nil
}

func (f *fakeLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeAuth struct {
	decision auth.Decision
	err      error
	calls    int
}

func (f *fakeAuth) Authenticate(ctx context.Context, prompt string) (auth.Decision, error) {
	f.calls++
	return f.decision, f.err
}

type fakeTransport struct {
	err   error
	calls int

	gotPhone   string
	gotMessage string
}

func (f *fakeTransport) Send(ctx context.Context, phoneNumber, message string) (string, error) {
	f.calls++
	f.gotPhone = phoneNumber
	f.gotMessage = message
	if f.err != nil {
		return "", f.err
	}
	return "remote-1", nil
}

func strPtr(s string) *string { return &s }

func esmaili() model.AliasEntry {
	return model.AliasEntry{
		ID:                "id-1",
		Alias:             "Esmaili",
		NormalizedAlias:   "esmaili",
		PhoneNumber:       "+61400000000",
		PredefinedMessage: "come to my office",
	}
}

func newTestPipeline(aliases *fakeAliasStore, logs *fakeLogStore, a *fakeAuth, tr *fakeTransport) *service.Pipeline {
	return service.NewPipeline(aliases, logs, cache.Noop{}, a, tr)
}

func TestInvoke_SendsPredefinedMessage(t *testing.T) {
	t.Parallel()

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{"esmaili": esmaili()}}
	logs := &fakeLogStore{}
	au := &fakeAuth{decision: auth.Approved}
	tr := &fakeTransport{}

	p := newTestPipeline(aliases, logs, au, tr)

	outcome, err := p.Invoke(context.Background(), "Esmaili", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeSent {
		t.Fatalf("expected outcome sent, got %q", outcome)
	}

	if tr.gotPhone != "+61400000000" {
		t.Fatalf("unexpected phone: %q", tr.gotPhone)
	}
	if tr.gotMessage != "come to my office" {
		t.Fatalf("unexpected message: %q", tr.gotMessage)
	}

	if len(logs.appended) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs.appended))
	}
	le := logs.appended[0]
	if le.Status != model.Sent {
		t.Fatalf("expected SENT, got %q", le.Status)
	}
	if le.Alias != "Esmaili" {
		t.Fatalf("expected original-cased alias, got %q", le.Alias)
	}
	if le.MaskedPhone != "+61****000" {
		t.Fatalf("unexpected masked phone: %q", le.MaskedPhone)
	}
	if strings.Contains(le.MessagePreview+le.MaskedPhone, "61400000000") {
		t.Fatalf("log entry leaks raw number: %+v", le)
	}
}

func TestInvoke_OverrideWinsAndPrefixIsPrepended(t *testing.T) {
	t.Parallel()

	entry := esmaili()
	entry.DefaultPrefix = strPtr("Mr Esmaili, ")

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{"esmaili": entry}}
	logs := &fakeLogStore{}
	tr := &fakeTransport{}

	p := newTestPipeline(aliases, logs, &fakeAuth{decision: auth.Approved}, tr)

	outcome, err := p.Invoke(context.Background(), "Esmaili", strPtr("call me"))
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeSent {
		t.Fatalf("expected outcome sent, got %q", outcome)
	}
	if tr.gotMessage != "Mr Esmaili, call me" {
		t.Fatalf("unexpected message: %q", tr.gotMessage)
	}
	if logs.appended[0].MessagePreview != "Mr Esmaili, call me" {
		t.Fatalf("unexpected preview: %q", logs.appended[0].MessagePreview)
	}
}

func TestInvoke_ShortCodeWithTrailingColonResolves(t *testing.T) {
	t.Parallel()

	entry := esmaili()
	entry.Alias = "101"
	entry.NormalizedAlias = "101"

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{"101": entry}}
	logs := &fakeLogStore{}
	tr := &fakeTransport{}

	p := newTestPipeline(aliases, logs, &fakeAuth{decision: auth.Approved}, tr)

	outcome, err := p.Invoke(context.Background(), "101:", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeSent {
		t.Fatalf("expected outcome sent, got %q", outcome)
	}
}

func TestInvoke_AliasNotFound_NothingHappens(t *testing.T) {
	t.Parallel()

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{}}
	logs := &fakeLogStore{}
	au := &fakeAuth{decision: auth.Approved}
	tr := &fakeTransport{}

	p := newTestPipeline(aliases, logs, au, tr)

	outcome, err := p.Invoke(context.Background(), "ghost", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeAliasNotFound {
		t.Fatalf("expected aliasNotFound, got %q", outcome)
	}

	if au.calls != 0 {
		t.Fatalf("expected no auth call, got %d", au.calls)
	}
	if tr.calls != 0 {
		t.Fatalf("expected no transport call, got %d", tr.calls)
	}
	if len(logs.appended) != 0 {
		t.Fatalf("expected no log entries, got %d", len(logs.appended))
	}
}

func TestInvoke_AuthDenied(t *testing.T) {
	t.Parallel()

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{"esmaili": esmaili()}}
	logs := &fakeLogStore{}
	tr := &fakeTransport{}

	p := newTestPipeline(aliases, logs, &fakeAuth{decision: auth.Denied}, tr)

	outcome, err := p.Invoke(context.Background(), "esmaili", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeAuthFailed {
		t.Fatalf("expected authFailed, got %q", outcome)
	}
	if tr.calls != 0 {
		t.Fatalf("expected no transport call, got %d", tr.calls)
	}
	if len(logs.appended) != 0 {
		t.Fatalf("expected no log entries, got %d", len(logs.appended))
	}
}

func TestInvoke_AuthCancelled_AbortsBeforeComposeAndLog(t *testing.T) {
	t.Parallel()

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{"esmaili": esmaili()}}
	logs := &fakeLogStore{}
	tr := &fakeTransport{}

	p := newTestPipeline(aliases, logs, &fakeAuth{decision: auth.Cancelled}, tr)

	outcome, err := p.Invoke(context.Background(), "esmaili", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeAborted {
		t.Fatalf("expected aborted, got %q", outcome)
	}
	if tr.calls != 0 {
		t.Fatalf("expected no transport call, got %d", tr.calls)
	}
	if len(logs.appended) != 0 {
		t.Fatalf("expected no log entries, got %d", len(logs.appended))
	}
}

func TestInvoke_AuthError_Aborts(t *testing.T) {
	t.Parallel()

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{"esmaili": esmaili()}}
	logs := &fakeLogStore{}
	tr := &fakeTransport{}

	p := newTestPipeline(aliases, logs, &fakeAuth{err: errors.New("approval service down")}, tr)

	outcome, err := p.Invoke(context.Background(), "esmaili", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeAborted {
		t.Fatalf("expected aborted, got %q", outcome)
	}
	if tr.calls != 0 || len(logs.appended) != 0 {
		t.Fatalf("expected nothing sent or logged")
	}
}

func TestInvoke_TransportFailure_LogsFailedAndReturnsSendError(t *testing.T) {
	t.Parallel()

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{"esmaili": esmaili()}}
	logs := &fakeLogStore{}
	tr := &fakeTransport{err: errors.New("gateway timeout")}

	p := newTestPipeline(aliases, logs, &fakeAuth{decision: auth.Approved}, tr)

	outcome, err := p.Invoke(context.Background(), "esmaili", nil)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if outcome != "" {
		t.Fatalf("expected zero outcome, got %q", outcome)
	}

	var se *model.SendError
	if !errors.As(err, &se) {
		t.Fatalf("expected *model.SendError, got %T: %v", err, err)
	}
	if !strings.Contains(se.Reason, "gateway timeout") {
		t.Fatalf("unexpected reason: %q", se.Reason)
	}

	if len(logs.appended) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs.appended))
	}
	le := logs.appended[0]
	if le.Status != model.Failed {
		t.Fatalf("expected FAILED, got %q", le.Status)
	}
	if le.FailureReason == nil || !strings.Contains(*le.FailureReason, "gateway timeout") {
		t.Fatalf("unexpected failure reason: %v", le.FailureReason)
	}
}

type staticCache struct {
	entry model.AliasEntry
	ok    bool
}

func (c staticCache) Get(context.Context, string) (model.AliasEntry, bool, error) {
	return c.entry, c.ok, nil
}

func (c staticCache) Set(context.Context, string, model.AliasEntry) error { return nil }

func (c staticCache) Invalidate(context.Context, string) error { return nil }

func TestInvoke_CacheHitSkipsStore(t *testing.T) {
	t.Parallel()

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{}}
	logs := &fakeLogStore{}
	tr := &fakeTransport{}

	p := service.NewPipeline(aliases, logs, staticCache{entry: esmaili(), ok: true}, &fakeAuth{decision: auth.Approved}, tr)

	outcome, err := p.Invoke(context.Background(), "Esmaili", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeSent {
		t.Fatalf("expected sent, got %q", outcome)
	}
	if aliases.lookups != 0 {
		t.Fatalf("expected no store lookup on cache hit, got %d", aliases.lookups)
	}
}

func TestInvoke_StaleCacheEntryFallsThroughToStore(t *testing.T) {
	t.Parallel()

	// Cached entry whose normalized alias no longer matches the key (alias
	// was renamed): the hit is ignored and the store decides.
	stale := esmaili()
	stale.NormalizedAlias = "oldname"

	aliases := &fakeAliasStore{entries: map[string]model.AliasEntry{}}
	logs := &fakeLogStore{}
	tr := &fakeTransport{}

	p := service.NewPipeline(aliases, logs, staticCache{entry: stale, ok: true}, &fakeAuth{decision: auth.Approved}, tr)

	outcome, err := p.Invoke(context.Background(), "esmaili", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if outcome != service.OutcomeAliasNotFound {
		t.Fatalf("expected aliasNotFound for stale cache entry, got %q", outcome)
	}
	if aliases.lookups != 1 {
		t.Fatalf("expected store lookup, got %d", aliases.lookups)
	}
}
