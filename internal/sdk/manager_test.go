package sdk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

// recorder captures status and ready callbacks
type recorder struct {
	mu       sync.Mutex
	statuses []string
	ready    []bool
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStatusChange: func(s string) {
			r.mu.Lock()
			r.statuses = append(r.statuses, s)
			r.mu.Unlock()
		},
		OnReady: func(ok bool) {
			r.mu.Lock()
			r.ready = append(r.ready, ok)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *recorder) lastReady() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ready) == 0 {
		return false, false
	}
	return r.ready[len(r.ready)-1], true
}

func (r *recorder) allStatuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.statuses...)
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeWorkspace, *recorder) {
	t.Helper()
	w := newFakeWorkspace()
	m := NewManager(w.provider, zerolog.Nop(), opts...)
	rec := &recorder{}
	m.SetCallbacks(rec.callbacks())
	return m, w, rec
}

// readyManager returns a manager the host already created
func readyManager(t *testing.T, opts ...Option) (*Manager, *fakeWorkspace, *recorder) {
	t.Helper()
	m, w, rec := newTestManager(t, opts...)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	w.provider.create("app-1")
	if m.State() != StateReady {
		t.Fatalf("State() = %v, want ready", m.State())
	}
	return m, w, rec
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestInitAndCreate(t *testing.T) {
	m, w, rec := newTestManager(t)

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if m.State() != StateConnecting {
		t.Fatalf("State() = %v, want connecting", m.State())
	}
	if rec.lastStatus() != StatusConnecting {
		t.Errorf("status = %q, want %q", rec.lastStatus(), StatusConnecting)
	}

	w.provider.create("app-1")

	if m.State() != StateReady || !m.IsInitialized() {
		t.Fatalf("State() = %v, want ready", m.State())
	}
	if rec.lastStatus() != StatusReady {
		t.Errorf("status = %q, want %q", rec.lastStatus(), StatusReady)
	}
	if ready, ok := rec.lastReady(); !ok || !ready {
		t.Errorf("ready = %v (reported %v), want true", ready, ok)
	}
	if m.AppInstanceID() != "app-1" {
		t.Errorf("AppInstanceID() = %q", m.AppInstanceID())
	}

	want := workspace.Capabilities{Agent: true, Contact: true, Voice: true, Email: true, Settings: true}
	if diff := cmp.Diff(want, m.Capabilities()); diff != "" {
		t.Errorf("Capabilities() mismatch (-want +got):\n%s", diff)
	}
}

func TestInitWhenReadyIsNoop(t *testing.T) {
	m, w, rec := readyManager(t)

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if w.provider.connects != 1 {
		t.Errorf("connects = %d, want 1", w.provider.connects)
	}
	if rec.lastStatus() != StatusIdle {
		t.Errorf("status = %q, want %q", rec.lastStatus(), StatusIdle)
	}
	if ready, _ := rec.lastReady(); !ready {
		t.Error("expected ready=true")
	}
}

func TestInitWhileConnecting(t *testing.T) {
	m, w, _ := newTestManager(t)

	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := m.Init(context.Background()); !errors.Is(err, ErrInitInProgress) {
		t.Fatalf("second Init() error = %v, want ErrInitInProgress", err)
	}
	if w.provider.connects != 1 {
		t.Errorf("connects = %d, want 1", w.provider.connects)
	}
}

func TestInitDialFailure(t *testing.T) {
	m, w, rec := newTestManager(t)
	w.provider.connectErr = errors.New("connection refused")

	err := m.Init(context.Background())
	if err == nil {
		t.Fatal("expected Init error")
	}
	if m.State() != StateUninitialized {
		t.Errorf("State() = %v, want uninitialized", m.State())
	}
	if rec.lastStatus() != "Error: connection refused" {
		t.Errorf("status = %q", rec.lastStatus())
	}
	if ready, ok := rec.lastReady(); !ok || ready {
		t.Error("expected ready=false")
	}
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		key        string
		wantStatus string
	}{
		{workspace.ErrKeyConnectTimeout, StatusNotInWorkspace},
		{"accessDenied", "Connection error: accessDenied"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, w, rec := newTestManager(t)
			if err := m.Init(context.Background()); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			w.provider.fail(tt.key)

			if rec.lastStatus() != tt.wantStatus {
				t.Errorf("status = %q, want %q", rec.lastStatus(), tt.wantStatus)
			}
			if ready, _ := rec.lastReady(); ready {
				t.Error("expected ready=false")
			}
			if m.State() != StateConnectionError {
				t.Fatalf("State() = %v, want connection_error", m.State())
			}
			if err := m.Init(context.Background()); !errors.Is(err, ErrConnectionFailed) {
				t.Errorf("Init() after error = %v, want ErrConnectionFailed", err)
			}

			m.Destroy()
			if err := m.Init(context.Background()); err != nil {
				t.Errorf("Init() after Destroy error = %v", err)
			}
		})
	}
}

func TestHostDestroyClearsSession(t *testing.T) {
	m, w, rec := readyManager(t)
	w.contact.onConnected(types.ContactDescriptor{ContactID: "c-1"})

	w.provider.destroy()

	if m.State() != StateUninitialized {
		t.Errorf("State() = %v, want uninitialized", m.State())
	}
	if m.HasActiveContact() {
		t.Error("contact should be cleared")
	}
	if m.Capabilities() != (workspace.Capabilities{}) {
		t.Errorf("Capabilities() = %+v, want none", m.Capabilities())
	}
	if w.provider.closes != 1 {
		t.Errorf("closes = %d, want 1", w.provider.closes)
	}
	if ready, _ := rec.lastReady(); ready {
		t.Error("expected ready=false after destroy")
	}

	_, err := m.GetAgentName(context.Background())
	if !IsNotInitialized(err) {
		t.Fatalf("GetAgentName() error = %v, want not initialized", err)
	}
}

func TestNotInitializedNamesClient(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"agent", func() error { _, err := m.GetAgentState(ctx); return err }, "AgentClient not initialized"},
		{"contact", func() error { return m.AcceptContact(ctx) }, "ContactClient not initialized"},
		{"contact scoped", func() error { _, err := m.GetContactAttributes(ctx); return err }, "ContactClient not initialized"},
		{"voice", func() error { _, err := m.ListDialableCountries(ctx); return err }, "VoiceClient not initialized"},
		{"email", func() error { _, err := m.GetEmailThread(ctx, "c-1"); return err }, "EmailClient not initialized"},
		{"file", func() error { return m.DeleteAttachedFile(ctx, "f-1") }, "FileClient not initialized"},
		{"template", func() error { _, err := m.IsMessageTemplateEnabled(ctx); return err }, "MessageTemplateClient not initialized"},
		{"quick responses", func() error { _, err := m.SearchQuickResponses(ctx, ""); return err }, "QuickResponsesClient not initialized"},
		{"settings", func() error { _, err := m.GetLanguage(ctx); return err }, "SettingsClient not initialized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !IsNotInitialized(err) {
				t.Fatalf("error = %v, want NotInitializedError", err)
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestOptionalClientAbsentAfterCreate(t *testing.T) {
	m, _, _ := readyManager(t)

	if _, err := m.GetAttachedFileURL(context.Background(), "f-1"); !IsNotInitialized(err) {
		t.Errorf("GetAttachedFileURL() error = %v, want not initialized", err)
	}
	lang, err := m.GetLanguage(context.Background())
	if err != nil || lang != "de_DE" {
		t.Errorf("GetLanguage() = %q, %v", lang, err)
	}
}

func TestContactQueriesWithoutContact(t *testing.T) {
	m, w, _ := readyManager(t)
	ctx := context.Background()

	attrs, err := m.GetContactAttributes(ctx)
	if err != nil {
		t.Fatalf("GetContactAttributes() error = %v", err)
	}
	if attrs == nil || len(attrs) != 0 {
		t.Errorf("GetContactAttributes() = %v, want empty map", attrs)
	}
	if w.contact.calls != 0 {
		t.Errorf("host queried %d times, want 0", w.contact.calls)
	}

	if ch, err := m.GetChannelType(ctx); err != nil || ch != "" {
		t.Errorf("GetChannelType() = %q, %v", ch, err)
	}
	if id, err := m.GetInitialContactID(ctx); err != nil || id != "" {
		t.Errorf("GetInitialContactID() = %q, %v", id, err)
	}
	if q, err := m.GetQueue(ctx); err != nil || q != nil {
		t.Errorf("GetQueue() = %v, %v", q, err)
	}
	if ts, err := m.GetQueueTimestamp(ctx); err != nil || !ts.IsZero() {
		t.Errorf("GetQueueTimestamp() = %v, %v", ts, err)
	}
}

func TestContactEventsTrackCurrentContact(t *testing.T) {
	m, w, _ := readyManager(t)
	ctx := context.Background()

	var got []string
	m.SetCallbacks(Callbacks{
		OnContactConnected: func(d types.ContactDescriptor) { got = append(got, "connected:"+d.ContactID) },
		OnContactCleared:   func(d types.ContactDescriptor) { got = append(got, "cleared:"+d.ContactID) },
		OnContactMissed:    func(d types.ContactDescriptor) { got = append(got, "missed:"+d.ContactID) },
		OnStartingACW:      func(d types.ContactDescriptor) { got = append(got, "acw:"+d.ContactID) },
	})

	w.contact.onConnected(types.ContactDescriptor{ContactID: "c-1", Channel: types.ChannelVoice})
	if !m.HasActiveContact() || m.CurrentContact().ContactID != "c-1" {
		t.Fatalf("CurrentContact() = %+v", m.CurrentContact())
	}

	attrs, err := m.GetContactAttributes(ctx)
	if err != nil || attrs["customerName"] != "Ada" {
		t.Errorf("GetContactAttributes() = %v, %v", attrs, err)
	}
	q, err := m.GetQueue(ctx)
	if err != nil || q == nil || q.Name != "Sales" {
		t.Errorf("GetQueue() = %v, %v", q, err)
	}

	w.contact.onACW(types.ContactDescriptor{ContactID: "c-1"})
	w.contact.onCleared(types.ContactDescriptor{ContactID: "c-1"})
	if m.HasActiveContact() {
		t.Error("contact should be cleared")
	}

	w.contact.onConnected(types.ContactDescriptor{ContactID: "c-2"})
	w.contact.onMissed(types.ContactDescriptor{ContactID: "c-2"})
	if m.CurrentContact() != nil {
		t.Error("contact should be cleared after missed")
	}

	want := []string{"connected:c-1", "acw:c-1", "cleared:c-1", "connected:c-2", "missed:c-2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
	}
}

func TestContactQueryHostFailureIsNeutral(t *testing.T) {
	m, w, _ := readyManager(t)
	ctx := context.Background()
	w.contact.onConnected(types.ContactDescriptor{ContactID: "c-1"})
	w.contact.err = errors.New("no contact")

	if attrs, err := m.GetContactAttributes(ctx); err != nil || len(attrs) != 0 {
		t.Errorf("GetContactAttributes() = %v, %v", attrs, err)
	}
	if v, err := m.GetContactAttribute(ctx, "customerName"); err != nil || v != "" {
		t.Errorf("GetContactAttribute() = %q, %v", v, err)
	}
	if d, err := m.GetStateDuration(ctx); err != nil || d != 0 {
		t.Errorf("GetStateDuration() = %v, %v", d, err)
	}
}

func TestAgentStateChangeEvent(t *testing.T) {
	m, w, _ := readyManager(t)

	var got workspace.AgentStateChange
	m.SetCallbacks(Callbacks{OnAgentStateChange: func(ch workspace.AgentStateChange) { got = ch }})

	w.agent.onState(workspace.AgentStateChange{State: types.AgentState{Name: "Break"}})

	if got.State.Name != "Break" {
		t.Errorf("callback state = %q, want Break", got.State.Name)
	}
	if st := m.AgentState(); st == nil || st.Name != "Break" {
		t.Errorf("AgentState() = %+v", st)
	}
}

func TestCreateOutboundCall(t *testing.T) {
	m, w, rec := readyManager(t, WithStatusRevertDelay(20*time.Millisecond))

	res, err := m.CreateOutboundCall(context.Background(), "4155551234", types.OutboundCallOptions{})
	if err != nil {
		t.Fatalf("CreateOutboundCall() error = %v", err)
	}
	if res.ContactID != "out-1" {
		t.Errorf("ContactID = %q", res.ContactID)
	}
	if diff := cmp.Diff([]string{"+14155551234"}, w.voice.dialedNumbers()); diff != "" {
		t.Errorf("dialed mismatch (-want +got):\n%s", diff)
	}

	statuses := rec.allStatuses()
	if !containsInOrder(statuses, "Dialing +14155551234...", "Call initiated to +14155551234") {
		t.Errorf("statuses = %v", statuses)
	}

	eventually(t, func() bool { return rec.lastStatus() == StatusIdle })
}

func TestCreateOutboundCallRejected(t *testing.T) {
	tests := []struct {
		name       string
		number     string
		state      string
		permission bool
		check      func(error) bool
		wantMsg    string
	}{
		{
			name:       "agent offline",
			number:     "4155551234",
			state:      types.StateOffline,
			permission: true,
			check:      func(err error) bool { return errors.Is(err, ErrOutboundNotAllowed) },
			wantMsg:    "Must be Available or AfterContactWork",
		},
		{
			name:       "no permission",
			number:     "4155551234",
			state:      types.StateAvailable,
			permission: false,
			check:      func(err error) bool { return errors.Is(err, ErrOutboundNotAllowed) },
			wantMsg:    "outbound call permission",
		},
		{
			name:       "too short",
			number:     "123",
			state:      types.StateAvailable,
			permission: true,
			check:      IsValidation,
			wantMsg:    "invalid phone number format: 123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, w, _ := readyManager(t)
			w.agent.state = types.AgentState{Name: tt.state}
			w.voice.permission = tt.permission

			_, err := m.CreateOutboundCall(context.Background(), tt.number, types.OutboundCallOptions{})
			if err == nil || !tt.check(err) {
				t.Fatalf("CreateOutboundCall() error = %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.wantMsg)
			}
			if n := len(w.voice.dialedNumbers()); n != 0 {
				t.Errorf("dialed %d numbers, want 0", n)
			}
		})
	}
}

func TestAfterContactWorkMayDial(t *testing.T) {
	m, w, _ := readyManager(t)
	w.agent.state = types.AgentState{Name: types.StateAfterContactWork}

	if _, err := m.CreateOutboundCall(context.Background(), "+49 30 1234567", types.OutboundCallOptions{}); err != nil {
		t.Fatalf("CreateOutboundCall() error = %v", err)
	}
	if got := w.voice.dialedNumbers(); len(got) != 1 || got[0] != "+49301234567" {
		t.Errorf("dialed = %v", got)
	}
}

func TestCreateOutboundCallHostFailure(t *testing.T) {
	m, w, rec := readyManager(t, WithStatusRevertDelay(20*time.Millisecond))
	w.voice.dialErr = errors.New("line busy")

	if _, err := m.CreateOutboundCall(context.Background(), "4155551234", types.OutboundCallOptions{}); err == nil {
		t.Fatal("expected dial error")
	}
	if rec.lastStatus() != "Call to +14155551234 failed" {
		t.Errorf("status = %q", rec.lastStatus())
	}
	eventually(t, func() bool { return rec.lastStatus() == StatusIdle })
}

func TestNewerStatusCancelsRevert(t *testing.T) {
	m, _, rec := readyManager(t, WithStatusRevertDelay(30*time.Millisecond))

	if _, err := m.CreateOutboundCall(context.Background(), "4155551234", types.OutboundCallOptions{}); err != nil {
		t.Fatalf("CreateOutboundCall() error = %v", err)
	}
	m.emitStatus("Custom status")

	time.Sleep(80 * time.Millisecond)
	if rec.lastStatus() != "Custom status" {
		t.Errorf("status = %q, want the newer status to stay", rec.lastStatus())
	}
}

func TestCanMakeOutboundCallWithoutClients(t *testing.T) {
	m, _, _ := newTestManager(t)
	got := m.CanMakeOutboundCall(context.Background())
	if got.CanCall || got.Reason != "Clients not initialized" {
		t.Errorf("CanMakeOutboundCall() = %+v", got)
	}
}

func TestStateChangeNoResult(t *testing.T) {
	m, w, _ := readyManager(t)
	w.agent.setErr = &workspace.Error{Key: workspace.ErrKeyNoResult}

	if err := m.SetAvailabilityState(context.Background(), "arn:break"); !errors.Is(err, ErrNotInWorkspace) {
		t.Errorf("SetAvailabilityState() error = %v, want ErrNotInWorkspace", err)
	}
	if err := m.SetOffline(context.Background()); !errors.Is(err, ErrNotInWorkspace) {
		t.Errorf("SetOffline() error = %v, want ErrNotInWorkspace", err)
	}

	w.agent.setErr = errors.New("throttled")
	if err := m.SetOffline(context.Background()); err == nil || errors.Is(err, ErrNotInWorkspace) {
		t.Errorf("SetOffline() error = %v, want the host error", err)
	}
}

func TestSetAvailabilityStateValidates(t *testing.T) {
	m, w, _ := readyManager(t)
	if err := m.SetAvailabilityState(context.Background(), ""); !IsValidation(err) {
		t.Errorf("SetAvailabilityState(\"\") error = %v, want validation", err)
	}
	if len(w.agent.setARNs) != 0 {
		t.Errorf("host called with %v", w.agent.setARNs)
	}
}

func TestCreateDraftEmail(t *testing.T) {
	m, w, _ := readyManager(t)
	ctx := context.Background()

	_, err := m.CreateDraftEmail(ctx, types.DraftEmail{To: []types.EmailAddress{{EmailAddress: " "}}})
	if !IsValidation(err) {
		t.Fatalf("CreateDraftEmail() error = %v, want validation", err)
	}
	if len(w.email.drafts) != 0 {
		t.Fatal("draft should not reach the host")
	}

	id, err := m.CreateDraftEmail(ctx, types.DraftEmail{
		To:      []types.EmailAddress{{EmailAddress: "customer@example.com"}},
		Subject: "Hi",
	})
	if err != nil || id != "draft-1" {
		t.Fatalf("CreateDraftEmail() = %q, %v", id, err)
	}

	if err := m.SendEmail(ctx, types.DraftEmail{}); !IsValidation(err) {
		t.Errorf("SendEmail() without contact id error = %v, want validation", err)
	}
	if err := m.SendEmail(ctx, types.DraftEmail{ContactID: id}); err != nil {
		t.Errorf("SendEmail() error = %v", err)
	}
}

func TestGetEmailData(t *testing.T) {
	m, w, _ := readyManager(t)
	ctx := context.Background()

	w.contact.onConnected(types.ContactDescriptor{ContactID: "c-1"})
	data, err := m.GetEmailData(ctx)
	if err != nil || data != nil {
		t.Fatalf("GetEmailData() on voice = %+v, %v; want nil", data, err)
	}
	if m.IsEmailEnabled(ctx) {
		t.Error("IsEmailEnabled() = true on a voice contact")
	}

	w.contact.channel = types.ChannelEmail
	w.contact.attrs = map[string]string{
		"customerEmail": "ada@example.com",
		"toAddress":     "support@example.com",
		"emailSubject":  "Order",
		"body":          "Where is it?",
		"receivedTime":  "2026-10-14T08:00:00Z",
		"threadId":      "t-9",
	}

	data, err = m.GetEmailData(ctx)
	if err != nil {
		t.Fatalf("GetEmailData() error = %v", err)
	}
	want := &types.EmailData{
		ContactID:    "c-1",
		FromAddress:  "ada@example.com",
		ToAddress:    "support@example.com",
		Subject:      "Order",
		Body:         "Where is it?",
		Status:       "active",
		ReceivedTime: "2026-10-14T08:00:00Z",
		ThreadID:     "t-9",
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("GetEmailData() mismatch (-want +got):\n%s", diff)
	}
	if !m.IsEmailEnabled(ctx) {
		t.Error("IsEmailEnabled() = false on an email contact")
	}
}

func TestSetCallbacksMerges(t *testing.T) {
	m, w, rec := readyManager(t)

	var language string
	m.SetCallbacks(Callbacks{OnLanguageChanged: func(ch workspace.LanguageChange) { language = ch.Language }})
	w.settings.onLanguage(workspace.LanguageChange{Language: "fr_FR"})
	if language != "fr_FR" {
		t.Errorf("language = %q", language)
	}

	m.emitStatus("still wired")
	if rec.lastStatus() != "still wired" {
		t.Error("earlier status callback was replaced")
	}
}

func TestSubscribe(t *testing.T) {
	m, w, _ := readyManager(t)

	var contacts, all int
	unsubscribe := m.Subscribe(TopicContactConnected, func(ev Event) {
		if d, ok := ev.Data.(types.ContactDescriptor); ok && d.ContactID == "c-1" {
			contacts++
		}
	})
	m.Subscribe("", func(Event) { all++ })

	w.contact.onConnected(types.ContactDescriptor{ContactID: "c-1"})
	w.email.onAccepted(workspace.EmailEvent{ContactID: "e-1"})

	if contacts != 1 {
		t.Errorf("contact events = %d, want 1", contacts)
	}
	if all != 2 {
		t.Errorf("all events = %d, want 2", all)
	}

	unsubscribe()
	unsubscribe()
	w.contact.onConnected(types.ContactDescriptor{ContactID: "c-1"})
	if contacts != 1 {
		t.Errorf("contact events after unsubscribe = %d, want 1", contacts)
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	m, w, _ := readyManager(t)

	m.Subscribe(TopicContactConnected, func(Event) { panic("boom") })
	var got bool
	m.Subscribe(TopicContactConnected, func(Event) { got = true })

	w.contact.onConnected(types.ContactDescriptor{ContactID: "c-1"})
	if !got {
		t.Error("second subscriber not called")
	}
}

func TestSendError(t *testing.T) {
	m, w, _ := newTestManager(t)
	m.SendError(context.Background(), "dropped")
	if len(w.provider.appErrors) != 0 {
		t.Fatal("error sent before init")
	}

	m, w, _ = readyManager(t)
	m.SendError(context.Background(), "render failed")
	m.SendFatalError(context.Background(), "crashed")
	if diff := cmp.Diff([]string{"render failed", "crashed"}, w.provider.appErrors); diff != "" {
		t.Errorf("appErrors mismatch (-want +got):\n%s", diff)
	}
}

func TestKeepConnectedReconnects(t *testing.T) {
	m, w, _ := newTestManager(t, WithBackoff(5*time.Millisecond, 10*time.Millisecond))
	connects := func() int {
		w.provider.mu.Lock()
		defer w.provider.mu.Unlock()
		return w.provider.connects
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.KeepConnected(ctx)
		close(done)
	}()

	eventually(t, func() bool { return connects() == 1 })
	w.provider.create("app-1")
	eventually(t, func() bool { return m.State() == StateReady })

	w.provider.destroy()
	eventually(t, func() bool { return connects() == 2 })

	w.provider.fail(workspace.ErrKeyConnectTimeout)
	eventually(t, func() bool { return connects() == 3 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("KeepConnected did not return after cancel")
	}
}

func containsInOrder(got []string, want ...string) bool {
	i := 0
	for _, s := range got {
		if i < len(want) && s == want[i] {
			i++
		}
	}
	return i == len(want)
}
