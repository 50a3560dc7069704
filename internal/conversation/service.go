// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package conversation orchestrates a full chat turn: session validation,
// cache lookup, the processing pipeline, the LLM call with a parallel
// control request, and persistence.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/chatrelay/internal/control"
	"github.com/ManuGH/chatrelay/internal/llm"
	"github.com/ManuGH/chatrelay/internal/log"
	"github.com/ManuGH/chatrelay/internal/metrics"
	"github.com/ManuGH/chatrelay/internal/pipeline"
	"github.com/ManuGH/chatrelay/internal/provider"
	"github.com/ManuGH/chatrelay/internal/store"
)

const contextWindowMessages = 20

// ErrAccessDenied is returned when a user addresses a session they do not own.
var ErrAccessDenied = errors.New("conversation: access denied to this session")

// SendRequest is one inbound chat turn.
type SendRequest struct {
	SessionID   string
	UserID      string
	Message     string
	WantEmote   bool
	WantReplies bool
}

// SendResult is the reply to one chat turn. Warnings carry control channel
// problems that did not fail the turn.
type SendResult struct {
	UserMessage      *store.Message `json:"user_message"`
	AssistantMessage *store.Message `json:"assistant_message"`
	SessionID        string         `json:"session_id"`
	ProviderMetadata map[string]any `json:"provider_metadata"`
	ProcessingInfo   map[string]any `json:"processing_info"`
	ControlData      *control.Data  `json:"control_data,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
}

// Service glues the store, pipeline, cache, router and control service
// into one turn handler.
type Service struct {
	store    *store.Store
	router   *llm.Router
	pipeline *pipeline.Pipeline
	cache    *pipeline.ResponseCache
	control  *control.Service
}

// NewService wires the conversation service.
func NewService(st *store.Store, router *llm.Router, respCache *pipeline.ResponseCache) *Service {
	return &Service{
		store:    st,
		router:   router,
		pipeline: pipeline.New(),
		cache:    respCache,
		control:  control.NewService(router),
	}
}

// Send runs one complete chat turn.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	logger := log.FromContext(ctx).With().Str(log.FieldSessionID, req.SessionID).Logger()

	sess, err := s.store.Session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != req.UserID {
		return nil, ErrAccessDenied
	}

	sc := provider.SessionConfig{
		UserID:        sess.UserID,
		ModelConfig:   sess.ModelConfig,
		ContextConfig: sess.ContextConfig,
	}

	history, err := s.store.ConversationContext(ctx, req.SessionID, 10)
	if err != nil {
		return nil, err
	}

	pc := pipeline.Context{
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		SessionConfig: sc,
		PresetKey:     presetKeyFor(sess.ModelConfig),
		History:       history,
		Preferences:   pipeline.DefaultPreferences(),
	}

	cacheKey := s.cache.Key(req.Message, pc)
	if cached, ok := s.cache.Get(cacheKey); ok {
		logger.Debug().Str(log.FieldEvent, "conversation.cache_hit").Msg("serving cached response")
		return s.sendCached(ctx, req, sc, history, cached, cacheKey)
	}

	processed := s.pipeline.PreProcess(req.Message, pc)

	// The original message is stored; the processed variant goes to the model.
	userMsg, err := s.store.AddMessage(ctx, req.SessionID, store.RoleUser, req.Message, map[string]any{
		"processed_content": processed.Content,
		"processing_notes":  processed.Notes,
		"structured_data":   processed.StructuredData,
		"enhancements":      processed.Enhancements,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: store user message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(store.RoleUser).Inc()

	messages, err := s.buildContext(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("conversation: build context: %w", err)
	}
	if n := len(messages); n > 0 && messages[n-1].Role == store.RoleUser {
		messages[n-1].Content = processed.Content
	}

	systemPrompt := provider.EffectiveSystemPrompt(sc.ContextConfig)

	// Main completion and the control request run in parallel. Control
	// failures become warnings on the result, never turn failures.
	var (
		llmResp     *llm.Response
		controlData *control.Data
		warnings    []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		llmResp, err = s.router.Complete(gctx, sc.ModelConfig.Provider, llm.Request{
			Messages:     messages,
			Model:        sc.ModelConfig.Model,
			Parameters:   sc.ModelConfig.Parameters,
			SystemPrompt: systemPrompt,
		})
		return err
	})
	if req.WantEmote || req.WantReplies {
		g.Go(func() error {
			var controlWarnings []string
			controlData, controlWarnings = s.control.Generate(gctx, control.Request{
				UserMessage:   req.Message,
				Context:       history,
				SessionConfig: sc,
				WantEmote:     req.WantEmote,
				WantReplies:   req.WantReplies,
			})
			warnings = append(warnings, controlWarnings...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("conversation: llm request failed: %w", err)
	}

	if !llmResp.Success {
		errMsg := llmResp.Error
		if errMsg == "" {
			errMsg = "unknown LLM error"
		}
		// Keep a system record of the failure for debugging.
		if _, storeErr := s.store.AddMessage(ctx, req.SessionID, store.RoleSystem, "Error: "+errMsg, map[string]any{
			"error":        true,
			"provider":     llmResp.Provider,
			"model":        llmResp.Model,
			"llm_metadata": llmResp.Metadata,
		}); storeErr != nil {
			logger.Warn().Err(storeErr).Msg("failed to record llm error message")
		}
		return nil, fmt.Errorf("conversation: llm request failed: %s", errMsg)
	}

	postProcessed := s.pipeline.PostProcess(llmResp.Content, pc)

	assistantMsg, err := s.store.AddMessage(ctx, req.SessionID, store.RoleAssistant, postProcessed.Content, map[string]any{
		"llm_metadata":     llmResp.Metadata,
		"provider":         llmResp.Provider,
		"model":            llmResp.Model,
		"original_content": llmResp.Content,
		"processing_notes": postProcessed.Notes,
		"structured_data":  postProcessed.StructuredData,
		"enhancements":     postProcessed.Enhancements,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: store assistant message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(store.RoleAssistant).Inc()

	s.cache.Put(cacheKey, pipeline.CachedResponse{
		Content:        postProcessed.Content,
		StructuredData: postProcessed.StructuredData,
		Enhancements:   postProcessed.Enhancements,
		Provider:       llmResp.Provider,
		Model:          llmResp.Model,
	})

	result := &SendResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		SessionID:        req.SessionID,
		ProviderMetadata: llmResp.Metadata,
		ProcessingInfo: map[string]any{
			"processed":       true,
			"enhancements":    postProcessed.Enhancements,
			"structured_data": postProcessed.StructuredData,
			"cache_key":       cacheKey,
		},
		Warnings: warnings,
	}
	if req.WantEmote || req.WantReplies {
		if controlData == nil {
			controlData = &control.Data{QuickReplies: []string{}}
		}
		result.ControlData = controlData
	}
	return result, nil
}

// sendCached replays a cached response. Messages are still persisted and
// control data is still generated when requested.
func (s *Service) sendCached(
	ctx context.Context,
	req SendRequest,
	sc provider.SessionConfig,
	history []store.Message,
	cached *pipeline.CachedResponse,
	cacheKey string,
) (*SendResult, error) {
	userMsg, err := s.store.AddMessage(ctx, req.SessionID, store.RoleUser, req.Message, nil)
	if err != nil {
		return nil, fmt.Errorf("conversation: store user message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(store.RoleUser).Inc()

	assistantMsg, err := s.store.AddMessage(ctx, req.SessionID, store.RoleAssistant, cached.Content, map[string]any{
		"provider":        cached.Provider,
		"model":           cached.Model,
		"structured_data": cached.StructuredData,
		"enhancements":    cached.Enhancements,
		"cached":          true,
		"cache_key":       cacheKey,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: store assistant message: %w", err)
	}
	metrics.MessagesTotal.WithLabelValues(store.RoleAssistant).Inc()

	result := &SendResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		SessionID:        req.SessionID,
		ProviderMetadata: map[string]any{
			"provider": cached.Provider,
			"model":    cached.Model,
		},
		ProcessingInfo: map[string]any{"cached": true},
	}

	if req.WantEmote || req.WantReplies {
		data, warnings := s.control.Generate(ctx, control.Request{
			UserMessage:   req.Message,
			Context:       history,
			SessionConfig: sc,
			WantEmote:     req.WantEmote,
			WantReplies:   req.WantReplies,
		})
		if data == nil {
			data = &control.Data{QuickReplies: []string{}}
		}
		result.ControlData = data
		result.Warnings = warnings
	}
	return result, nil
}

// buildContext assembles the recent user/assistant dialogue for the model.
func (s *Service) buildContext(ctx context.Context, sessionID string) ([]llm.Message, error) {
	msgs, err := s.store.ConversationContext(ctx, sessionID, contextWindowMessages)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == store.RoleUser || m.Role == store.RoleAssistant {
			out = append(out, llm.Message{Role: m.Role, Content: m.Content})
		}
	}
	return out, nil
}

// Providers lists the configured upstream providers.
func (s *Service) Providers() []string { return s.router.Providers() }

// ProviderAvailable reports whether a provider has a configured client.
func (s *Service) ProviderAvailable(name string) bool { return s.router.Available(name) }
