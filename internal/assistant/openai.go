package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/config"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

// doctorSearchTag is how the model asks for a doctor search.
var doctorSearchTag = regexp.MustCompile(`(?i)\[DOCTOR_SEARCH:\s*specialty="([^"]*)",\s*location="([^"]*)",\s*insurance="([^"]*)"\]`)

const (
	doctorSearchPageSize = 10
	searchFailedMessage  = "I'm sorry, I encountered an error. Please try again or contact support."
)

// OpenAI answers with an OpenAI-compatible chat model and runs the doctor
// searches it requests.
type OpenAI struct {
	llm          LLMClient
	model        string
	systemPrompt string
	doctors      DoctorSearcher
}

// NewOpenAI creates the provider. doctors may be nil, in which case search
// requests are answered with text only.
func NewOpenAI(llm LLMClient, cfg config.AssistantConfig, doctors DoctorSearcher) *OpenAI {
	prompt := DefaultSystemPrompt
	if cfg.SystemPrompt != "" {
		prompt = cfg.SystemPrompt
	}
	return &OpenAI{llm: llm, model: cfg.Model, systemPrompt: prompt, doctors: doctors}
}

// Chat sends the history plus the new message to the model. A session id is
// issued when the request carries none.
func (o *OpenAI) Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	sessionID := uuid.NewString()
	if req.SessionID != nil && *req.SessionID != "" {
		sessionID = *req.SessionID
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.ConversationHistory)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt})
	for _, h := range req.ConversationHistory {
		role := openai.ChatMessageRoleUser
		if h.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})

	resp, err := o.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{Model: o.model, Messages: msgs})
	if err != nil {
		logger.L.Error("LLM call failed", "error", err)
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion: no choices returned")
	}
	reply := resp.Choices[0].Message.Content
	logger.L.Debug("LLM response received", "session_id", sessionID, "length", len(reply))

	loc := doctorSearchTag.FindStringSubmatchIndex(reply)
	if loc == nil || o.doctors == nil {
		return &backend.ChatResponse{Message: reply, ContentType: models.ContentText, SessionID: sessionID}, nil
	}

	params := backend.DoctorSearchParams{
		Specialty: reply[loc[2]:loc[3]],
		Location:  reply[loc[4]:loc[5]],
		Insurance: reply[loc[6]:loc[7]],
	}
	logger.L.Info("doctor search requested", "specialty", params.Specialty, "location", params.Location, "insurance", params.Insurance)

	text := strings.TrimSpace(reply[:loc[0]])
	if text == "" {
		text = fmt.Sprintf("I found some %s doctors near %s for you. Here are the available options:", params.Specialty, params.Location)
	}

	result, err := o.doctors.SearchDoctors(ctx, backend.DoctorSearchRequest{
		Specialty: params.Specialty,
		Location:  params.Location,
		Insurance: params.Insurance,
		PageSize:  doctorSearchPageSize,
	})
	if err != nil {
		logger.L.Error("doctor search failed", "error", err)
		return &backend.ChatResponse{Message: searchFailedMessage, ContentType: models.ContentError, SessionID: sessionID}, nil
	}
	return &backend.ChatResponse{
		Message:            text,
		ContentType:        models.ContentDoctorResults,
		DoctorSearchResult: result,
		SessionID:          sessionID,
		DoctorSearchParams: &params,
	}, nil
}
