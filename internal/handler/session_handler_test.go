package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/calldojo/calldojo-api/internal/dto"
	"github.com/calldojo/calldojo-api/internal/handler"
	"github.com/calldojo/calldojo-api/internal/service"
)

type stubCallService struct {
	session dto.SessionResponse
	respond dto.RespondResponse
	err     error
}

func (s stubCallService) CreateSession(context.Context, dto.SessionCreateRequest) (dto.SessionResponse, error) {
	return s.session, s.err
}

func (s stubCallService) GetSession(context.Context, string) (dto.SessionResponse, error) {
	return s.session, s.err
}

func (s stubCallService) ListSessions(context.Context) ([]dto.SessionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []dto.SessionResponse{s.session}, nil
}

func (s stubCallService) UpdateSession(context.Context, string, dto.SessionUpdateRequest) (dto.SessionResponse, error) {
	return s.session, s.err
}

func (s stubCallService) DeleteSession(context.Context, string) error {
	return s.err
}

func (s stubCallService) AddMessage(context.Context, string, dto.MessageRequest) (dto.TurnResponse, error) {
	return dto.TurnResponse{ID: "turn-1", Speaker: "user"}, s.err
}

func (s stubCallService) Transcript(context.Context, string) (dto.ConversationResponse, error) {
	return dto.ConversationResponse{SessionID: s.session.ID, Turns: []dto.TurnResponse{}}, s.err
}

func (s stubCallService) Respond(context.Context, string, dto.RespondRequest) (dto.RespondResponse, error) {
	return s.respond, s.err
}

func (s stubCallService) EndCall(context.Context, string, string) (dto.SessionResponse, error) {
	return s.session, s.err
}

func sessionApp(svc service.CallService) *fiber.App {
	app := fiber.New()
	h := handler.NewSessionHandler(svc, zerolog.Nop())
	h.Register(app.Group("/api/v1/sessions"))
	return app
}

func jsonRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestSessionHandlerCreate(t *testing.T) {
	app := sessionApp(stubCallService{session: dto.SessionResponse{ID: "s1", ScenarioID: "training"}})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions", `{"scenario_id":"training"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.Equal(t, true, payload["success"])
	data := payload["data"].(map[string]interface{})
	require.Equal(t, "s1", data["id"])
}

func TestSessionHandlerCreateInvalidBody(t *testing.T) {
	app := sessionApp(stubCallService{})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions", `{not json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandlerGetNotFound(t *testing.T) {
	app := sessionApp(stubCallService{err: service.ErrSessionNotFound})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/missing", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.Equal(t, false, payload["success"])
	require.Equal(t, "session not found", payload["message"])
}

func TestSessionHandlerListIncludesCount(t *testing.T) {
	app := sessionApp(stubCallService{session: dto.SessionResponse{ID: "s1"}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	meta := payload["meta"].(map[string]interface{})
	require.Equal(t, float64(1), meta["count"])
}

func TestSessionHandlerRespond(t *testing.T) {
	app := sessionApp(stubCallService{respond: dto.RespondResponse{
		Reply:          "Who is this?",
		DetectedIntent: "greets",
		NodeID:         "discovery",
		ResponseSource: "scripted",
	}})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions/s1/respond", `{"message":"good morning"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	data := payload["data"].(map[string]interface{})
	require.Equal(t, "greets", data["detected_intent"])
	require.Equal(t, "scripted", data["response_source"])
}

func TestSessionHandlerRespondCompleted(t *testing.T) {
	app := sessionApp(stubCallService{err: service.ErrSessionCompleted})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions/s1/respond", `{"message":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSessionHandlerRespondStuck(t *testing.T) {
	app := sessionApp(stubCallService{err: service.ErrConversationStuck})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions/s1/respond", `{"message":"hmm"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSessionHandlerEndWithoutBody(t *testing.T) {
	app := sessionApp(stubCallService{session: dto.SessionResponse{ID: "s1", IsTerminal: true}})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions/s1/end", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionHandlerEndInvalidTerminal(t *testing.T) {
	app := sessionApp(stubCallService{err: service.ErrInvalidTerminalNode})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/sessions/s1/end", `{"terminal_node_id":"discovery"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandlerDelete(t *testing.T) {
	app := sessionApp(stubCallService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/s1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
