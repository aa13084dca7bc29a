package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parley-ai/parley/internal/ai"
	"github.com/parley-ai/parley/internal/model"
	"github.com/parley-ai/parley/internal/repo"
)

const classifyPrompt = `Classify the following conversation into one or more topics. Return ONLY a JSON array of objects with "topic" and "confidence" (0-100) fields.

Topics to choose from:
- coding (programming, software development)
- debugging (fixing bugs, errors, troubleshooting)
- creative (creative writing, storytelling, poetry)
- learning (explanations, tutorials, education)
- brief (requests for concise answers)
- analysis (complex reasoning, problem solving)
- general (doesn't fit other categories)

Example output:
[{"topic": "coding", "confidence": 85}, {"topic": "debugging", "confidence": 60}]

Conversation:
`

// classifyMessageLimit caps how much of the conversation is sent to the model.
const classifyMessageLimit = 10

type keywordGroup struct {
	topic    string
	keywords []string
}

// Keyword heuristics give an instant local topic guess without a model call.
var keywordGroups = []keywordGroup{
	{
		topic: "coding",
		keywords: []string{
			"function", "class", "import", "export", "const", "let", "var",
			"typescript", "javascript", "python", "react", "node", "api",
			"endpoint", "database", "sql", "component", "hook", "state",
			"async", "await", "promise", "interface", "type", "enum",
			"git", "commit", "branch", "deploy", "build", "compile",
			"npm", "package", "module", "server", "client", "frontend",
			"backend", "fullstack", "code", "program", "algorithm",
			"refactor", "implement", "develop", "software", "app",
		},
	},
	{
		topic: "debugging",
		keywords: []string{
			"error", "bug", "fix", "broken", "crash", "fail", "issue",
			"debug", "trace", "stack", "exception", "undefined", "null",
			"not working", "unexpected", "wrong", "incorrect", "problem",
			"troubleshoot", "investigate", "diagnose", "log", "console",
		},
	},
	{
		topic: "creative",
		keywords: []string{
			"story", "poem", "creative", "write", "fiction", "character",
			"plot", "narrative", "dialogue", "scene", "novel", "essay",
			"blog", "article", "content", "draft", "edit", "prose",
			"verse", "metaphor", "imagery", "brainstorm",
		},
	},
	{
		topic: "learning",
		keywords: []string{
			"explain", "teach", "learn", "understand", "concept", "how does",
			"what is", "why does", "tutorial", "guide", "beginner", "basics",
			"fundamentals", "introduction", "course", "lesson", "example",
			"analogy", "difference between", "compare",
		},
	},
	{
		topic: "brief",
		keywords: []string{
			"quick", "brief", "short", "tldr", "tl;dr", "summary",
			"summarize", "one-liner", "concise", "fast", "just tell me",
		},
	},
}

// DetectTopics scores topic keyword hits in the given text. Confidence is
// derived from the hit ratio against the first few keywords of each group,
// capped at 95 so heuristics never outrank an explicit classification.
func DetectTopics(text string) []model.ChatTopic {
	lower := strings.ToLower(text)
	var matches []model.ChatTopic
	for _, group := range keywordGroups {
		hits := 0
		for _, keyword := range group.keywords {
			if strings.Contains(lower, keyword) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		base := len(group.keywords)
		if base > 5 {
			base = 5
		}
		confidence := hits * 80 / base
		if confidence > 95 {
			confidence = 95
		}
		matches = append(matches, model.ChatTopic{Topic: group.topic, Confidence: confidence})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

type TopicService struct {
	topics    *repo.TopicRepo
	messages  *repo.MessageRepo
	generator ai.IGenerator
}

func NewTopicService(topics *repo.TopicRepo, messages *repo.MessageRepo, generator ai.IGenerator) *TopicService {
	return &TopicService{topics: topics, messages: messages, generator: generator}
}

// Classify asks the model to label the chat with topics. Results are cached in
// chat_topics; once a chat is classified the cached labels are returned.
func (s *TopicService) Classify(ctx context.Context, chatID int64) ([]model.ChatTopic, bool, error) {
	existing, err := s.topics.ListByChat(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return existing, true, nil
	}

	msgs, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	if len(msgs) == 0 {
		return nil, false, nil
	}
	if len(msgs) > classifyMessageLimit {
		msgs = msgs[:classifyMessageLimit]
	}
	var sb strings.Builder
	for _, msg := range msgs {
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	output, err := s.generator.Generate(ctx, "", []ai.ChatMessage{
		{Role: model.RoleUser, Content: classifyPrompt + sb.String()},
	})
	if err != nil {
		logutil.GetLogger(ctx).Warn("topic classification call failed, using keyword fallback",
			zap.Int64("chat_id", chatID), zap.Error(err))
		return keywordFallback(chatID, sb.String()), false, nil
	}
	topics, err := parseTopics(output, chatID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("topic classification parse failed, using keyword fallback",
			zap.Int64("chat_id", chatID), zap.Error(err))
		return keywordFallback(chatID, sb.String()), false, nil
	}
	if err := s.topics.SaveBatch(ctx, chatID, topics); err != nil {
		return nil, false, err
	}
	return topics, false, nil
}

// keywordFallback labels the chat from keyword hits alone. The result is not
// cached, so a later classify call can still upgrade it with a model answer.
func keywordFallback(chatID int64, text string) []model.ChatTopic {
	topics := DetectTopics(text)
	for i := range topics {
		topics[i].ChatID = chatID
	}
	return topics
}

func parseTopics(output string, chatID int64) ([]model.ChatTopic, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}

	var raw []struct {
		Topic      string `json:"topic"`
		Confidence int    `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	topics := make([]model.ChatTopic, 0, len(raw))
	seen := make(map[string]bool)
	for _, item := range raw {
		topic := strings.ToLower(strings.TrimSpace(item.Topic))
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		confidence := item.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 100 {
			confidence = 100
		}
		topics = append(topics, model.ChatTopic{ChatID: chatID, Topic: topic, Confidence: confidence})
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics found")
	}
	return topics, nil
}
