package hostsim

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace/bridge"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1 << 20
)

// session is one connected app
type session struct {
	host *Host
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	topics map[string]bool
	closed bool
}

func newSession(h *Host, conn *websocket.Conn) *session {
	return &session{
		host:   h,
		conn:   conn,
		send:   make(chan []byte, 256),
		topics: make(map[string]bool),
	}
}

func (s *session) subscribed(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topics[topic]
}

func (s *session) enqueue(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- msg:
	default:
		s.host.logger.Warn().Msg("session send buffer full, dropping message")
	}
}

func (s *session) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.host.logger.Error().Err(err).Msg("failed to marshal frame")
		return
	}
	s.enqueue(data)
}

func (s *session) sendCreate() {
	s.sendJSON(bridge.LifecycleMsg{
		Type:          bridge.TypeLifecycle,
		Stage:         bridge.StageCreate,
		AppInstanceID: s.host.cfg.AppInstanceID,
		Features:      s.host.cfg.Features,
	})
}

func (s *session) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
}

func (s *session) readPump() {
	defer func() {
		s.host.removeSession(s)
		s.close()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPingHandler(func(data string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handle(message)
	}
}

func (s *session) writePump() {
	defer s.conn.Close()
	for message := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (s *session) handle(message []byte) {
	var env bridge.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return
	}

	switch env.Type {
	case bridge.TypeSubscribe:
		var sub bridge.SubscribeMsg
		if err := json.Unmarshal(message, &sub); err != nil {
			return
		}
		s.mu.Lock()
		s.topics[sub.Topic] = true
		s.mu.Unlock()

	case bridge.TypeRequest:
		var req bridge.RequestMsg
		if err := json.Unmarshal(message, &req); err != nil {
			return
		}
		result, werr := s.host.dispatch(req.Method, req.Params)
		resp := bridge.ResponseMsg{Type: bridge.TypeResponse, ID: req.ID, Error: werr}
		if werr == nil && result != nil {
			raw, err := json.Marshal(result)
			if err != nil {
				resp.Error = &workspace.Error{Key: "encodeFailed", Message: err.Error()}
			} else {
				resp.Result = raw
			}
		}
		s.sendJSON(resp)

	case bridge.TypeAppError:
		var ae bridge.AppErrorMsg
		if err := json.Unmarshal(message, &ae); err != nil {
			return
		}
		s.host.mu.Lock()
		s.host.appErrors = append(s.host.appErrors, ae.Message)
		s.host.mu.Unlock()
		s.host.logger.Warn().Str("message", ae.Message).Bool("fatal", ae.Fatal).Msg("app reported error")
	}
}

func decode(params json.RawMessage, v interface{}) *workspace.Error {
	if len(params) == 0 {
		return &workspace.Error{Key: "invalidParams", Message: "params required"}
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &workspace.Error{Key: "invalidParams", Message: err.Error()}
	}
	return nil
}

var errNoContact = &workspace.Error{Key: workspace.ErrKeyNoResult, Message: "no current contact"}

// dispatch answers one capability request
func (h *Host) dispatch(method string, params json.RawMessage) (interface{}, *workspace.Error) {
	switch {
	case strings.HasPrefix(method, "agent."):
		return h.dispatchAgent(method, params)
	case strings.HasPrefix(method, "contact."), strings.HasPrefix(method, "voice."):
		return h.dispatchContact(method, params)
	default:
		return h.dispatchOptional(method, params)
	}
}

func (h *Host) dispatchAgent(method string, params json.RawMessage) (interface{}, *workspace.Error) {
	switch method {
	case bridge.MethodAgentGetARN:
		return h.agent.arn, nil
	case bridge.MethodAgentGetName:
		return h.agent.name, nil
	case bridge.MethodAgentGetExtension:
		return h.agent.extension, nil
	case bridge.MethodAgentGetState:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.agent.state, nil
	case bridge.MethodAgentGetChannelConcurrency:
		return h.agent.concurrency, nil
	case bridge.MethodAgentGetRoutingProfile:
		return h.agent.profile, nil
	case bridge.MethodAgentListAvailabilityStates:
		return h.agent.states, nil
	case bridge.MethodAgentListQuickConnects:
		return h.agent.quick, nil

	case bridge.MethodAgentSetAvailabilityState:
		if h.cfg.NoResult {
			return nil, &workspace.Error{Key: workspace.ErrKeyNoResult}
		}
		var p bridge.StateARNParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		st, ok := h.lookupState(func(s types.AvailabilityState) bool { return s.StateARN == p.StateARN })
		if !ok {
			return nil, &workspace.Error{Key: "invalidState", Message: p.StateARN}
		}
		h.changeState(types.AgentState{Name: st.Name, Type: st.Type, ARN: st.StateARN})
		return nil, nil

	case bridge.MethodAgentSetStateByName:
		if h.cfg.NoResult {
			return nil, &workspace.Error{Key: workspace.ErrKeyNoResult}
		}
		var p bridge.StateNameParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		if err := h.SetAgentState(p.Name); err != nil {
			return nil, &workspace.Error{Key: "invalidState", Message: p.Name}
		}
		return nil, nil

	case bridge.MethodAgentSetOffline:
		if h.cfg.NoResult {
			return nil, &workspace.Error{Key: workspace.ErrKeyNoResult}
		}
		if err := h.SetAgentState(types.StateOffline); err != nil {
			return nil, &workspace.Error{Key: "invalidState", Message: err.Error()}
		}
		return nil, nil
	}
	return nil, unknownMethod(method)
}

func (h *Host) dispatchContact(method string, params json.RawMessage) (interface{}, *workspace.Error) {
	h.mu.Lock()
	var cur *Contact
	if h.contact != nil {
		c := *h.contact
		cur = &c
	}
	permission := h.permission
	h.mu.Unlock()

	switch method {
	case bridge.MethodVoiceGetOutboundPermission:
		return permission, nil
	case bridge.MethodVoiceListDialableCountries:
		return h.agent.countries, nil
	case bridge.MethodVoiceCreateOutboundCall:
		var p bridge.OutboundCallParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.dialed = append(h.dialed, p.PhoneNumber)
		h.mu.Unlock()
		contact := h.ConnectContact(Contact{ContactDescriptor: types.ContactDescriptor{
			Type:           types.CallOutbound,
			CustomerNumber: p.PhoneNumber,
		}})
		return types.OutboundCallResult{ContactID: contact.ContactID}, nil
	}

	if cur == nil {
		return nil, errNoContact
	}

	switch method {
	case bridge.MethodContactAccept:
		return nil, nil
	case bridge.MethodContactClear:
		if err := h.ClearContact(cur.ContactID); err != nil {
			return nil, errNoContact
		}
		return nil, nil
	case bridge.MethodContactTransfer, bridge.MethodContactAddParticipant:
		var p types.TransferDetails
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return nil, nil
	case bridge.MethodContactGetAttribute:
		var p bridge.AttributeParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		v, ok := cur.Attributes[p.Name]
		if !ok {
			return nil, &workspace.Error{Key: "attributeNotFound", Message: p.Name}
		}
		return v, nil
	case bridge.MethodContactGetAttributes:
		if cur.Attributes == nil {
			return map[string]string{}, nil
		}
		return cur.Attributes, nil
	case bridge.MethodContactGetChannelType:
		return cur.Channel, nil
	case bridge.MethodContactGetInitialID:
		return cur.ContactID, nil
	case bridge.MethodContactGetQueue:
		if cur.Queue != nil {
			return cur.Queue, nil
		}
		return types.Queue{Name: cur.QueueName}, nil
	case bridge.MethodContactGetQueueTimestamp:
		return cur.QueueTimestamp, nil
	case bridge.MethodContactGetStateDuration:
		return time.Since(cur.StateStart).Milliseconds(), nil
	case bridge.MethodVoiceGetInitialCustomerNum:
		return cur.CustomerPhoneOr(""), nil
	}
	return nil, unknownMethod(method)
}

func (h *Host) hasFeature(name string) bool {
	for _, f := range h.cfg.Features {
		if f == name {
			return true
		}
	}
	return false
}

func (h *Host) dispatchOptional(method string, params json.RawMessage) (interface{}, *workspace.Error) {
	feature, _, _ := strings.Cut(method, ".")
	if !h.hasFeature(feature) {
		return nil, &workspace.Error{Key: "featureUnavailable", Message: feature}
	}

	switch method {
	case bridge.MethodEmailCreateDraft:
		var draft types.DraftEmail
		if err := decode(params, &draft); err != nil {
			return nil, err
		}
		id := uuid.NewString()
		draft.ContactID = id
		h.mu.Lock()
		h.drafts[id] = draft
		h.mu.Unlock()
		h.publish(bridge.TopicEmailDraftCreated, workspace.EmailEvent{ContactID: id})
		return bridge.ContactIDParams{ContactID: id}, nil

	case bridge.MethodEmailSend:
		var draft types.DraftEmail
		if err := decode(params, &draft); err != nil {
			return nil, err
		}
		h.mu.Lock()
		_, ok := h.drafts[draft.ContactID]
		delete(h.drafts, draft.ContactID)
		h.mu.Unlock()
		if !ok {
			return nil, &workspace.Error{Key: "draftNotFound", Message: draft.ContactID}
		}
		return nil, nil

	case bridge.MethodEmailGetThread:
		var p bridge.ContactIDParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		return []types.EmailMessage{
			{ID: p.ContactID + "-1", From: "customer@example.com", To: "support@example.com", Subject: "Product inquiry", Body: "Hello, I have a question about your product.", Timestamp: now.Add(-time.Hour).Format(time.RFC3339), Attachments: []string{}},
			{ID: p.ContactID + "-2", From: "support@example.com", To: "customer@example.com", Subject: "Re: Product inquiry", Body: "Thanks for reaching out, happy to help.", Timestamp: now.Add(-30 * time.Minute).Format(time.RFC3339), Attachments: []string{}},
		}, nil

	case bridge.MethodFileStartUpload:
		var up types.FileUpload
		if err := decode(params, &up); err != nil {
			return nil, err
		}
		f := types.AttachedFile{FileID: uuid.NewString(), FileName: up.FileName, FileSize: up.FileSize, FileStatus: "PROCESSING"}
		h.mu.Lock()
		h.files[f.FileID] = f
		h.mu.Unlock()
		return f, nil

	case bridge.MethodFileCompleteUpload:
		var f types.AttachedFile
		if err := decode(params, &f); err != nil {
			return nil, err
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		stored, ok := h.files[f.FileID]
		if !ok {
			return nil, &workspace.Error{Key: "fileNotFound", Message: f.FileID}
		}
		stored.FileStatus = "APPROVED"
		h.files[f.FileID] = stored
		return nil, nil

	case bridge.MethodFileGetURL:
		var p bridge.FileIDParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		h.mu.Lock()
		f, ok := h.files[p.FileID]
		h.mu.Unlock()
		if !ok {
			return nil, &workspace.Error{Key: "fileNotFound", Message: p.FileID}
		}
		f.URL = fmt.Sprintf("https://files.sim.local/%s/%s", f.FileID, f.FileName)
		return f, nil

	case bridge.MethodFileBatchMetadata:
		var p bridge.FileIDsParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		out := []types.AttachedFile{}
		for _, id := range p.FileIDs {
			if f, ok := h.files[id]; ok {
				out = append(out, f)
			}
		}
		return out, nil

	case bridge.MethodFileDelete:
		var p bridge.FileIDParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		h.mu.Lock()
		delete(h.files, p.FileID)
		h.mu.Unlock()
		return nil, nil

	case bridge.MethodTemplateIsEnabled, bridge.MethodQuickResponsesIsEnabled:
		return true, nil

	case bridge.MethodTemplateSearch:
		var p bridge.SearchParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		out := []types.Template{}
		for _, t := range h.templates {
			if matches(t.Name, p.Query) {
				out = append(out, types.Template{ID: t.ID, Name: t.Name, Channel: t.Channel})
			}
		}
		return out, nil

	case bridge.MethodTemplateGetContent:
		var p bridge.TemplateIDParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		for _, t := range h.templates {
			if t.ID == p.TemplateID {
				return t, nil
			}
		}
		return nil, &workspace.Error{Key: "templateNotFound", Message: p.TemplateID}

	case bridge.MethodQuickResponsesSearch:
		var p bridge.SearchParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		out := []types.QuickResponse{}
		for _, r := range h.responses {
			if matches(r.Name, p.Query) || matches(r.Content, p.Query) {
				out = append(out, r)
			}
		}
		return out, nil

	case bridge.MethodSettingsGetLanguage:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.language, nil
	}
	return nil, unknownMethod(method)
}

func matches(s, query string) bool {
	return query == "" || strings.Contains(strings.ToLower(s), strings.ToLower(query))
}

func unknownMethod(method string) *workspace.Error {
	return &workspace.Error{Key: workspace.ErrKeyUnknownMethod, Message: method}
}
