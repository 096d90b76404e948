package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"bubbles-backend/backend/internal/state"
	apperrors "bubbles-backend/backend/pkg/errors"
	"bubbles-backend/backend/pkg/logger"
)

// AdviceWaiting is the wingman's explicit "no advice" sentinel. Callers
// suppress it instead of surfacing it to the user.
const AdviceWaiting = "WAITING"

// consultantFallback is returned when the detailed tier fails. Failures
// degrade to this fixed answer, never to an error: the real-time path is
// never blocked on inference.
const consultantFallback = "I'm having trouble thinking right now, please try again in a moment. - Bubbles"

// Brain talks to an OpenAI-compatible inference endpoint with two model
// tiers: a fast model for live advice and relation extraction, and a
// detailed model for consultant answers.
type Brain struct {
	client          *openai.Client
	wingmanModel    string
	consultantModel string
	logger          *zap.Logger
}

// NewBrain creates the LLM adapter
func NewBrain(baseURL, apiKey, wingmanModel, consultantModel string) *Brain {
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Brain{
		client:          openai.NewClientWithConfig(config),
		wingmanModel:    wingmanModel,
		consultantModel: consultantModel,
		logger:          logger.Get(),
	}
}

// WingmanModel returns the fast-tier model identifier
func (b *Brain) WingmanModel() string {
	return b.wingmanModel
}

// ConsultantModel returns the detailed-tier model identifier
func (b *Brain) ConsultantModel() string {
	return b.consultantModel
}

// WingmanAdvice asks the fast tier for one short piece of real-time
// advice about the partner's latest utterance. Returns AdviceWaiting when
// the model has nothing to say or the request fails.
func (b *Brain) WingmanAdvice(ctx context.Context, userID, transcript, graphContext, memoryContext string) string {
	systemPrompt := fmt.Sprintf(
		"You are a strategic Wingman AI named Bubbles. Your goal is to assist the user in real-time."+
			"\n\nRULES:"+
			"\n1. Analyze the transcript."+
			"\n2. Use the GRAPH CONTEXT (Facts) and MEMORY (History)."+
			"\n3. Provide ONE sharp, short advice sentence."+
			"\n4. If the user is doing fine, or it's just noise, output exactly 'WAITING'."+
			"\n\nUSER ID: %s"+
			"\nGRAPH CONTEXT:\n%s"+
			"\nMEMORY CONTEXT:\n%s",
		userID, graphContext, memoryContext,
	)

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.wingmanModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "The user just said: " + transcript},
		},
		Temperature: 0.6,
		MaxTokens:   60,
	})
	if err != nil {
		b.logger.Warn("Wingman advice request failed",
			zap.String("user_id", userID),
			zap.String("model", b.wingmanModel),
			zap.Error(err),
		)
		return AdviceWaiting
	}
	if len(resp.Choices) == 0 {
		return AdviceWaiting
	}
	return trimAdvice(resp.Choices[0].Message.Content)
}

// ExtractRelations asks the fast tier to pull (source, target, relation)
// triples out of a transcript. Malformed or unparsable output degrades to
// an empty slice; partial results are still returned.
func (b *Brain) ExtractRelations(ctx context.Context, transcript string) []state.Relation {
	const prompt = "Extract relationships from the text. Return JSON ONLY: " +
		`{"relationships": [{"source": "A", "target": "B", "relation": "C"}]}. ` +
		"The entities must be clear."

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.wingmanModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		b.logger.Warn("Relation extraction request failed",
			zap.String("model", b.wingmanModel),
			zap.Error(err),
		)
		return nil
	}
	if len(resp.Choices) == 0 {
		return nil
	}

	relations, err := parseRelations(resp.Choices[0].Message.Content)
	if err != nil {
		b.logger.Warn("Relation extraction returned malformed data", zap.Error(err))
	}
	return relations
}

// ConsultantAnswer asks the detailed tier for a full answer grounded in
// all three context sources. Degrades to a fixed fallback answer.
func (b *Brain) ConsultantAnswer(ctx context.Context, userID, question, history, graphContext, memoryContext string) string {
	systemPrompt := fmt.Sprintf(
		"You are an expert consultant AI named Bubbles. Your goal is to answer the user's detailed question "+
			"based on all available context: history, graph facts, and long-term memories."+
			"\n\nRULES:"+
			"\n1. **Do not** mention 'vectors', 'graphs', or 'context'. Simply use the information naturally."+
			"\n2. Provide a complete, short, and realistic answer."+
			"\n\n--- CONTEXT FOR BUBBLES ---"+
			"\nCONSULTANT HISTORY:\n%s"+
			"\nGRAPH FACTS:\n%s"+
			"\nVEC MEMORIES:\n%s"+
			"\n---------------------------",
		history, graphContext, memoryContext,
	)

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.consultantModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil {
		b.logger.Warn("Consultant answer request failed",
			zap.String("user_id", userID),
			zap.String("model", b.consultantModel),
			zap.Error(err),
		)
		return consultantFallback
	}
	if len(resp.Choices) == 0 {
		return consultantFallback
	}
	return resp.Choices[0].Message.Content
}

// parseRelations decodes the extraction payload and filters out relations
// missing either endpoint
func parseRelations(content string) ([]state.Relation, error) {
	var payload struct {
		Relationships []state.Relation `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, apperrors.NewMalformedExtraction(err)
	}

	var relations []state.Relation
	for _, rel := range payload.Relationships {
		if rel.WellFormed() {
			relations = append(relations, rel)
		}
	}
	return relations, nil
}

func trimAdvice(advice string) string {
	advice = strings.TrimSpace(advice)
	if advice == "" {
		return AdviceWaiting
	}
	return advice
}
