// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package analytics derives conversation insights from stored sessions
// and messages.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/chatrelay/internal/store"
)

// DefaultWindowDays is the analysis window when the caller gives none.
const DefaultWindowDays = 30

// topicKeywords drives the keyword-based topic extraction.
var topicKeywords = map[string][]string{
	"programming": {"code", "function", "variable", "programming", "debug", "error", "syntax"},
	"writing":     {"write", "essay", "article", "content", "draft", "editing"},
	"analysis":    {"analyze", "data", "research", "study", "examine", "investigate"},
	"creative":    {"creative", "story", "poem", "design", "art", "imagination"},
	"technical":   {"system", "architecture", "database", "server", "network", "api"},
	"business":    {"strategy", "plan", "market", "business", "revenue", "profit"},
}

// Period describes the analysis window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Topic is one extracted conversation topic with its share of mentions.
type Topic struct {
	Topic      string  `json:"topic"`
	Mentions   int     `json:"mentions"`
	Percentage float64 `json:"percentage"`
}

// TimePatterns describes when a user is active.
type TimePatterns struct {
	HourlyDistribution map[int]int    `json:"hourly_distribution"`
	DailyDistribution  map[string]int `json:"daily_distribution"`
	PeakHour           *int           `json:"peak_hour"`
	PeakDay            string         `json:"peak_day,omitempty"`
	MostActivePeriod   string         `json:"most_active_period,omitempty"`
}

// Summary is the per-user conversation summary over a window.
type Summary struct {
	Period        Period               `json:"period"`
	SessionStats  *store.SessionStats  `json:"session_stats"`
	MessageStats  *store.MessageStats  `json:"message_stats"`
	ProviderUsage []store.ProviderUsage `json:"provider_usage"`
	Topics        []Topic              `json:"conversation_topics"`
	TimePatterns  TimePatterns         `json:"time_patterns"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// SessionInsights are the derived metrics for one session.
type SessionInsights struct {
	SessionInfo     map[string]any `json:"session_info"`
	MessageAnalysis MessageAnalysis `json:"message_analysis"`
	FlowAnalysis    FlowAnalysis    `json:"flow_analysis"`
	QualityMetrics  QualityMetrics  `json:"quality_metrics"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// MessageAnalysis summarizes the message mix of a session.
type MessageAnalysis struct {
	TotalMessages      int      `json:"total_messages"`
	UserMessages       int      `json:"user_messages"`
	AssistantMessages  int      `json:"assistant_messages"`
	AvgUserLength      float64  `json:"avg_user_message_length"`
	AvgAssistantLength float64  `json:"avg_assistant_message_length"`
	ConversationPhases []string `json:"conversation_phases"`
}

// FlowAnalysis captures the question/answer structure of a session.
type FlowAnalysis struct {
	QuestionAnswerPairs int `json:"question_answer_pairs"`
	FollowUpQuestions   int `json:"follow_up_questions"`
	TopicChanges        int `json:"topic_changes"`
	ConversationDepth   int `json:"conversation_depth"`
}

// QualityMetrics are rough response quality indicators.
type QualityMetrics struct {
	AvgResponseLength    float64 `json:"avg_response_length"`
	StructuredResponses  int     `json:"structured_responses"`
	CodeExamples         int     `json:"code_examples"`
	DetailedExplanations int     `json:"detailed_explanations"`
}

// ProviderComparison compares usage across providers for a user.
type ProviderComparison struct {
	Period      Period                    `json:"period"`
	Providers   map[string]*ProviderStats `json:"provider_comparison"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// ProviderStats aggregates load and token usage per provider.
type ProviderStats struct {
	Sessions            int      `json:"sessions"`
	Messages            int      `json:"messages"`
	Models              []string `json:"models"`
	TotalTokens         int      `json:"total_tokens"`
	AvgTokensPerMessage float64  `json:"avg_tokens_per_message"`
}

// Service answers analytics queries from the store.
type Service struct {
	store *store.Store
}

// NewService creates the analytics service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// UserSummary builds the conversation summary for a user over the last
// `days` days.
func (s *Service) UserSummary(ctx context.Context, userID string, days int) (*Summary, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	sessionStats, err := s.store.SessionStatsForUser(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	messageStats, err := s.store.MessageStatsForUser(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	providerUsage, err := s.store.ProviderUsageForUser(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.MessagesForUser(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Period:        Period{Start: start, End: end, Days: days},
		SessionStats:  sessionStats,
		MessageStats:  messageStats,
		ProviderUsage: providerUsage,
		Topics:        extractTopics(messages),
		TimePatterns:  analyzeTimePatterns(messages),
		GeneratedAt:   time.Now(),
	}, nil
}

// SessionInsights builds the insight report for one session, in any state.
func (s *Service) SessionInsights(ctx context.Context, sessionID string) (*SessionInsights, error) {
	sess, err := s.store.SessionAnyState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.SessionMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionInsights{
		SessionInfo: map[string]any{
			"session_id": sess.ID,
			"created_at": sess.CreatedAt,
			"provider":   sess.ModelConfig.Provider,
			"model":      sess.ModelConfig.Model,
		},
		MessageAnalysis: analyzeMessages(messages),
		FlowAnalysis:    analyzeFlow(messages),
		QualityMetrics:  calculateQuality(messages),
		GeneratedAt:     time.Now(),
	}, nil
}

// CompareProviders aggregates per-provider usage over the window.
func (s *Service) CompareProviders(ctx context.Context, userID string, days int) (*ProviderComparison, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	sessions, err := s.store.SessionsCreatedBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	providers := map[string]*ProviderStats{}
	models := map[string]map[string]struct{}{}

	for _, sess := range sessions {
		provider := sess.ModelConfig.Provider
		if provider == "" {
			provider = "unknown"
		}
		st, ok := providers[provider]
		if !ok {
			st = &ProviderStats{}
			providers[provider] = st
			models[provider] = map[string]struct{}{}
		}
		st.Sessions++
		models[provider][sess.ModelConfig.Model] = struct{}{}

		messages, err := s.store.SessionMessages(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("analytics: session messages for %s: %w", sess.ID, err)
		}
		st.Messages += len(messages)
		for _, m := range messages {
			if m.Role == store.RoleAssistant {
				st.TotalTokens += totalTokens(m.Metadata)
			}
		}
	}

	for provider, st := range providers {
		for model := range models[provider] {
			st.Models = append(st.Models, model)
		}
		sort.Strings(st.Models)
		st.AvgTokensPerMessage = round1(float64(st.TotalTokens) / math.Max(float64(st.Messages), 1))
	}

	return &ProviderComparison{
		Period:      Period{Start: start, End: end, Days: days},
		Providers:   providers,
		GeneratedAt: time.Now(),
	}, nil
}

func totalTokens(metadata map[string]any) int {
	llmMeta, _ := metadata["llm_metadata"].(map[string]any)
	usage, _ := llmMeta["usage"].(map[string]any)
	switch v := usage["total_tokens"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func extractTopics(messages []store.Message) []Topic {
	counts := map[string]int{}
	for _, m := range messages {
		if m.Role != store.RoleUser && m.Role != store.RoleAssistant {
			continue
		}
		content := strings.ToLower(m.Content)
		for topic, keywords := range topicKeywords {
			for _, kw := range keywords {
				if strings.Contains(content, kw) {
					counts[topic]++
				}
			}
		}
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return []Topic{}
	}

	topics := make([]Topic, 0, len(counts))
	for topic, n := range counts {
		topics = append(topics, Topic{
			Topic:      topic,
			Mentions:   n,
			Percentage: round1(float64(n) / float64(total) * 100),
		})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Mentions != topics[j].Mentions {
			return topics[i].Mentions > topics[j].Mentions
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > 5 {
		topics = topics[:5]
	}
	return topics
}

func analyzeTimePatterns(messages []store.Message) TimePatterns {
	tp := TimePatterns{
		HourlyDistribution: map[int]int{},
		DailyDistribution:  map[string]int{},
	}

	for _, m := range messages {
		if m.Role != store.RoleUser {
			continue
		}
		tp.HourlyDistribution[m.CreatedAt.Hour()]++
		tp.DailyDistribution[m.CreatedAt.Weekday().String()]++
	}

	if len(tp.HourlyDistribution) > 0 {
		peak, best := 0, -1
		for hour, n := range tp.HourlyDistribution {
			if n > best || (n == best && hour < peak) {
				peak, best = hour, n
			}
		}
		tp.PeakHour = &peak
		tp.MostActivePeriod = timePeriod(peak)
	}
	if len(tp.DailyDistribution) > 0 {
		best := -1
		for day, n := range tp.DailyDistribution {
			if n > best || (n == best && day < tp.PeakDay) {
				tp.PeakDay, best = day, n
			}
		}
	}
	return tp
}

func analyzeMessages(messages []store.Message) MessageAnalysis {
	var ma MessageAnalysis
	ma.TotalMessages = len(messages)

	var userLen, assistantLen int
	for _, m := range messages {
		switch m.Role {
		case store.RoleUser:
			ma.UserMessages++
			userLen += len(m.Content)
		case store.RoleAssistant:
			ma.AssistantMessages++
			assistantLen += len(m.Content)
		}
	}
	if ma.UserMessages > 0 {
		ma.AvgUserLength = round1(float64(userLen) / float64(ma.UserMessages))
	}
	if ma.AssistantMessages > 0 {
		ma.AvgAssistantLength = round1(float64(assistantLen) / float64(ma.AssistantMessages))
	}
	ma.ConversationPhases = detectPhases(messages)
	return ma
}

func analyzeFlow(messages []store.Message) FlowAnalysis {
	flow := FlowAnalysis{ConversationDepth: 1}

	var prevUser string
	for _, m := range messages {
		if m.Role != store.RoleUser {
			continue
		}
		if strings.Contains(m.Content, "?") {
			flow.QuestionAnswerPairs++
			if prevUser != "" && strings.Contains(prevUser, "?") {
				flow.FollowUpQuestions++
			}
		}
		prevUser = m.Content
	}
	return flow
}

func calculateQuality(messages []store.Message) QualityMetrics {
	var qm QualityMetrics

	var count, totalLen int
	for _, m := range messages {
		if m.Role != store.RoleAssistant {
			continue
		}
		count++
		totalLen += len(m.Content)

		if strings.ContainsAny(m.Content, "•-*") || strings.Contains(m.Content, "1.") || strings.Contains(m.Content, "2.") {
			qm.StructuredResponses++
		}
		if strings.Contains(m.Content, "`") {
			qm.CodeExamples++
		}
		if len(m.Content) > 500 {
			qm.DetailedExplanations++
		}
	}
	if count > 0 {
		qm.AvgResponseLength = round1(float64(totalLen) / float64(count))
	}
	return qm
}

func detectPhases(messages []store.Message) []string {
	var phases []string
	switch n := len(messages); {
	case n <= 2:
		phases = append(phases, "initial_greeting")
	case n <= 5:
		phases = append(phases, "exploration")
	case n <= 10:
		phases = append(phases, "deep_discussion")
	default:
		phases = append(phases, "extended_conversation")
	}

	var thanked, inquired bool
	for _, m := range messages {
		if m.Role != store.RoleUser {
			continue
		}
		content := strings.ToLower(m.Content)
		thanked = thanked || strings.Contains(content, "thank")
		inquired = inquired || strings.Contains(content, "?")
	}
	if thanked {
		phases = append(phases, "gratitude_expressed")
	}
	if inquired {
		phases = append(phases, "inquiry_phase")
	}
	return phases
}

func timePeriod(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
