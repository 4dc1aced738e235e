package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchAll(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]User)
	return users, args.Error(1)
}

type mockTarget struct {
	mock.Mock
}

func (m *mockTarget) Resolve(ctx context.Context, identifier string) (*User, error) {
	args := m.Called(ctx, identifier)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockTarget) Persist(ctx context.Context, user User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// eventLog collects observed events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) outcomes() []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Outcome, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Outcome)
	}
	return out
}

func defaultMappings() map[string]string {
	return map[string]string{
		"givenName": "FirstName",
		"sn":        "LastName",
		"mail":      "Email",
	}
}

func newTestEngine(t *testing.T, src Source, tgt Target, opts Options) (*Engine, *eventLog, *observer.ObservedLogs) {
	t.Helper()
	mapping, unresolved := CompileMapping(defaultMappings())
	require.Empty(t, unresolved)

	core, logs := observer.New(zapcore.DebugLevel)
	events := &eventLog{}
	e := NewEngine(src, tgt, mapping, NewSelector("SamAccountName"), zap.New(core), opts, events)
	e.newPassID = func() string { return "pass-1" }
	return e, events, logs
}

func TestReconcile_SourceFetchFailure(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	cause := errors.New("Test exception")
	src.On("FetchAll", mock.Anything).Return(nil, cause)

	e, events, logs := newTestEngine(t, src, tgt, Options{})

	report, err := e.Reconcile(context.Background(), true)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrSynchronization)
	assert.ErrorIs(t, err, ErrSourceFetch)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsSourceFetch(err))

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, cause, syncErr.Cause)
	assert.Equal(t, "failed to synchronize users: source fetch failed: Test exception", err.Error())

	tgt.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
	tgt.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)

	assert.Equal(t, []Outcome{OutcomePassFailed}, events.outcomes())
	assert.Equal(t, cause, errors.Unwrap(events.events[0].Err))
	errLogs := logs.FilterLevelExact(zapcore.ErrorLevel)
	require.Equal(t, 1, errLogs.Len())
	assert.Equal(t, string(OutcomePassFailed), errLogs.All()[0].ContextMap()["outcome"])
	assert.Equal(t, "pass-1", errLogs.All()[0].ContextMap()["pass_id"])

	require.NotNil(t, report)
	assert.Empty(t, report.Decisions)
	assert.NotEmpty(t, report.Error)
}

func TestReconcile_UserNotFoundInTarget(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	testUser := User{SamAccountName: Some("test.user")}
	src.On("FetchAll", mock.Anything).Return([]User{testUser}, nil)
	tgt.On("Resolve", mock.Anything, "test.user").Return(nil, nil)

	e, events, logs := newTestEngine(t, src, tgt, Options{})

	report, err := e.Reconcile(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, []Outcome{OutcomeNotFound}, events.outcomes())
	assert.Equal(t, "test.user", events.events[0].Identifier)
	tgt.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel)
	require.Equal(t, 1, warnings.Len())
	assert.Contains(t, warnings.All()[0].Message, "not found in target system")

	assert.Equal(t, Summary{Total: 1, NotFound: 1}, report.Summary)
}

func TestReconcile_UpdatesUserWhenAttributesDiffer(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	sourceUser := User{
		SamAccountName: Some("test.user"),
		FirstName:      Some("NewName"),
		LastName:       Some("NewLastName"),
		Email:          Some("new@email.com"),
	}
	targetUser := User{
		SamAccountName: Some("test.user"),
		FirstName:      Some("OldName"),
		LastName:       Some("OldLastName"),
		Email:          Some("old@email.com"),
	}
	src.On("FetchAll", mock.Anything).Return([]User{sourceUser}, nil)
	tgt.On("Resolve", mock.Anything, "test.user").Return(&targetUser, nil)
	tgt.On("Persist", mock.Anything, sourceUser).Return(nil).Once()

	e, events, logs := newTestEngine(t, src, tgt, Options{})

	report, err := e.Reconcile(context.Background(), false)
	require.NoError(t, err)

	tgt.AssertNumberOfCalls(t, "Persist", 1)
	tgt.AssertCalled(t, "Persist", mock.Anything, sourceUser)

	require.Equal(t, []Outcome{OutcomeUpdated}, events.outcomes())
	assert.Equal(t, []string{"givenName", "mail", "sn"}, events.events[0].Changed)
	assert.Equal(t, "pass-1", events.events[0].PassID)
	assert.False(t, events.events[0].DryRun)

	assert.Equal(t, 1, logs.FilterMessageSnippet("needs update").Len())
	assert.Equal(t, 1, report.Summary.Updated)
}

func TestReconcile_DryRunDoesNotPersist(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	sourceUser := User{SamAccountName: Some("u1"), FirstName: Some("New")}
	targetUser := User{SamAccountName: Some("u1"), FirstName: Some("Old")}
	src.On("FetchAll", mock.Anything).Return([]User{sourceUser}, nil)
	tgt.On("Resolve", mock.Anything, "u1").Return(&targetUser, nil)

	e, events, _ := newTestEngine(t, src, tgt, Options{})

	report, err := e.Reconcile(context.Background(), true)
	require.NoError(t, err)

	tgt.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
	assert.Equal(t, []Outcome{OutcomeWouldUpdate}, events.outcomes())
	assert.Equal(t, []string{"givenName"}, events.events[0].Changed)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Summary.WouldUpdate)
}

func TestReconcile_NoUpdateWhenAttributesAreSame(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	sourceUser := User{
		SamAccountName: Some("test.user"),
		FirstName:      Some("SameName"),
		LastName:       Some("SameLastName"),
		Email:          Some("same@email.com"),
	}
	targetUser := sourceUser
	src.On("FetchAll", mock.Anything).Return([]User{sourceUser}, nil)
	tgt.On("Resolve", mock.Anything, "test.user").Return(&targetUser, nil)

	e, events, logs := newTestEngine(t, src, tgt, Options{})

	_, err := e.Reconcile(context.Background(), false)
	require.NoError(t, err)

	tgt.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
	assert.Equal(t, []Outcome{OutcomeUpToDate}, events.outcomes())
	assert.Equal(t, 1, logs.FilterMessageSnippet("no update required").Len())
}

func TestReconcile_TargetFailureAbortsPass(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	users := []User{
		{SamAccountName: Some("a"), FirstName: Some("A")},
		{SamAccountName: Some("b"), FirstName: Some("B")},
		{SamAccountName: Some("c"), FirstName: Some("C")},
	}
	stale := User{FirstName: Some("old")}
	cause := errors.New("ldap unavailable")
	src.On("FetchAll", mock.Anything).Return(users, nil)
	tgt.On("Resolve", mock.Anything, "a").Return(&stale, nil)
	tgt.On("Persist", mock.Anything, users[0]).Return(nil)
	tgt.On("Resolve", mock.Anything, "b").Return(nil, cause)

	e, events, _ := newTestEngine(t, src, tgt, Options{})

	report, err := e.Reconcile(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynchronization)
	assert.ErrorIs(t, err, ErrTargetResolve)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsSourceFetch(err))

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "b", syncErr.Identifier)

	// Strict prefix: "a" applied, "c" never attempted.
	tgt.AssertNotCalled(t, "Resolve", mock.Anything, "c")
	assert.Equal(t, []Outcome{OutcomeUpdated, OutcomePassFailed}, events.outcomes())
	assert.Len(t, report.Decisions, 1)
	assert.Equal(t, 3, report.Summary.Total)
}

func TestReconcile_PersistFailureAbortsPass(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	user := User{SamAccountName: Some("a"), FirstName: Some("A")}
	stale := User{SamAccountName: Some("a"), FirstName: Some("old")}
	src.On("FetchAll", mock.Anything).Return([]User{user}, nil)
	tgt.On("Resolve", mock.Anything, "a").Return(&stale, nil)
	tgt.On("Persist", mock.Anything, user).Return(errors.New("write refused"))

	e, _, _ := newTestEngine(t, src, tgt, Options{})

	_, err := e.Reconcile(context.Background(), false)
	assert.ErrorIs(t, err, ErrTargetPersist)
}

func TestReconcile_IsolateFailures(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	users := []User{
		{SamAccountName: Some("a")},
		{SamAccountName: Some("b")},
		{SamAccountName: Some("c")},
	}
	same := User{SamAccountName: Some("c")}
	src.On("FetchAll", mock.Anything).Return(users, nil)
	tgt.On("Resolve", mock.Anything, "a").Return(nil, nil)
	tgt.On("Resolve", mock.Anything, "b").Return(nil, errors.New("timeout"))
	tgt.On("Resolve", mock.Anything, "c").Return(&same, nil)

	e, events, _ := newTestEngine(t, src, tgt, Options{IsolateFailures: true})

	report, err := e.Reconcile(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []Outcome{OutcomeNotFound, OutcomeFailed, OutcomeUpToDate}, events.outcomes())
	assert.ErrorIs(t, events.events[1].Err, ErrTargetResolve)
	assert.Equal(t, "b", events.events[1].Identifier)
	assert.Equal(t, Summary{Total: 3, NotFound: 1, UpToDate: 1, Failed: 1}, report.Summary)
}

func TestReconcile_ProcessesInSourceOrder(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	var users []User
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("user%d", i)
		users = append(users, User{SamAccountName: Some(id)})
		tgt.On("Resolve", mock.Anything, id).Return(nil, nil)
	}
	src.On("FetchAll", mock.Anything).Return(users, nil)

	e, events, _ := newTestEngine(t, src, tgt, Options{})

	_, err := e.Reconcile(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, events.events, 5)
	for i, ev := range events.events {
		assert.Equal(t, fmt.Sprintf("user%d", i), ev.Identifier)
	}
}

func TestReconcile_Workers(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	var users []User
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("user%d", i)
		u := User{SamAccountName: Some(id), FirstName: Some("new")}
		users = append(users, u)
		stale := User{SamAccountName: Some(id), FirstName: Some("old")}
		tgt.On("Resolve", mock.Anything, id).Return(&stale, nil)
		tgt.On("Persist", mock.Anything, u).Return(nil)
	}
	src.On("FetchAll", mock.Anything).Return(users, nil)

	e, events, _ := newTestEngine(t, src, tgt, Options{Workers: 8})

	report, err := e.Reconcile(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 50, report.Summary.Updated)
	tgt.AssertNumberOfCalls(t, "Persist", 50)

	seen := make(map[string]bool)
	for _, ev := range events.events {
		assert.Equal(t, OutcomeUpdated, ev.Outcome)
		seen[ev.Identifier] = true
	}
	assert.Len(t, seen, 50)
}

func TestReconcile_WorkersAbortOnFailure(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	users := []User{{SamAccountName: Some("boom")}}
	src.On("FetchAll", mock.Anything).Return(users, nil)
	tgt.On("Resolve", mock.Anything, "boom").Return(nil, errors.New("boom"))

	e, events, _ := newTestEngine(t, src, tgt, Options{Workers: 4})

	_, err := e.Reconcile(context.Background(), true)
	assert.ErrorIs(t, err, ErrTargetResolve)
	assert.Equal(t, []Outcome{OutcomePassFailed}, events.outcomes())
}

func TestReconcile_NilLoggerAndEmptySource(t *testing.T) {
	src := new(mockSource)
	tgt := new(mockTarget)
	src.On("FetchAll", mock.Anything).Return([]User{}, nil)

	e := NewEngine(src, tgt, nil, NewSelector("sam_account_name"), nil, Options{})
	report, err := e.Reconcile(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, report.Decisions)
	assert.NotEmpty(t, report.PassID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestEngine_NeedsUpdate(t *testing.T) {
	e, _, _ := newTestEngine(t, new(mockSource), new(mockTarget), Options{})

	t.Run("ReturnsTrueWhenPropertiesDiffer", func(t *testing.T) {
		source := User{SamAccountName: Some("Same"), FirstName: Some("New")}
		target := User{SamAccountName: Some("Same"), FirstName: Some("Old")}
		assert.True(t, e.NeedsUpdate(source, target))
	})

	t.Run("ReturnsFalseWhenPropertiesAreSame", func(t *testing.T) {
		source := User{SamAccountName: Some("Same"), FirstName: Some("Same"), LastName: Some("Same")}
		target := User{SamAccountName: Some("Same"), FirstName: Some("Same"), LastName: Some("Same")}
		assert.False(t, e.NeedsUpdate(source, target))
	})

	t.Run("IgnoresUnmappedIdentifier", func(t *testing.T) {
		source := User{SamAccountName: Some("one"), Email: Some("x@y")}
		target := User{SamAccountName: Some("two"), Email: Some("x@y")}
		assert.False(t, e.NeedsUpdate(source, target))
	})

	t.Run("AbsentDiffersFromEmpty", func(t *testing.T) {
		source := User{Email: Some("")}
		target := User{Email: Absent()}
		assert.True(t, e.NeedsUpdate(source, target))
	})
}

func TestEngine_ResolveIdentifier(t *testing.T) {
	e, _, _ := newTestEngine(t, new(mockSource), new(mockTarget), Options{})

	t.Run("ReturnsCorrectPropertyValue", func(t *testing.T) {
		assert.Equal(t, "test.user", e.ResolveIdentifier(User{SamAccountName: Some("test.user")}))
	})

	t.Run("ReturnsEmptyStringWhenPropertyNotFound", func(t *testing.T) {
		other := NewEngine(new(mockSource), new(mockTarget), e.Mapping(), NewSelector("NonExistingProperty"), nil, Options{})
		assert.Equal(t, "", other.ResolveIdentifier(User{SamAccountName: Some("test.user")}))
	})

	t.Run("ReturnsEmptyStringWhenPropertyValueIsAbsent", func(t *testing.T) {
		assert.Equal(t, "", e.ResolveIdentifier(User{SamAccountName: Absent()}))
	})
}
