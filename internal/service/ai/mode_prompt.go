package ai

import (
	"fmt"
	"strings"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
)

// PromptTemplate defines the system prompt for one reply mode
type PromptTemplate struct {
	SystemPrompt string
	StyleHints   []string
	ContextRules []string
}

// ModePromptManager manages prompt templates for the reply modes
type ModePromptManager struct {
	templates map[chat.Mode]*PromptTemplate
}

// NewModePromptManager creates a new prompt manager with default templates
func NewModePromptManager() *ModePromptManager {
	manager := &ModePromptManager{
		templates: make(map[chat.Mode]*PromptTemplate),
	}

	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the prompt template for a given mode
func (pm *ModePromptManager) GetPromptTemplate(mode chat.Mode) (*PromptTemplate, error) {
	template, exists := pm.templates[mode]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for mode: %s", mode)
	}
	return template, nil
}

// BuildSystemPrompt creates the system prompt for the mode, falling back to
// the simple template for unknown modes.
func (pm *ModePromptManager) BuildSystemPrompt(mode chat.Mode) string {
	template, err := pm.GetPromptTemplate(mode)
	if err != nil {
		template = pm.templates[chat.ModeSimple]
	}

	var builder strings.Builder
	builder.WriteString(template.SystemPrompt)
	if len(template.StyleHints) > 0 {
		builder.WriteString("\n\nStyle:\n- ")
		builder.WriteString(strings.Join(template.StyleHints, "\n- "))
	}
	if len(template.ContextRules) > 0 {
		builder.WriteString("\n\nRules:\n- ")
		builder.WriteString(strings.Join(template.ContextRules, "\n- "))
	}
	builder.WriteString("\n\nFormatting: you may use **bold**, *italic*, `code` and # headings. Do not emit HTML.")
	return builder.String()
}

const tutorPreamble = "You are EmoLearn, a friendly study assistant embedded next to an online lesson. " +
	"The learner may be confused, frustrated, sleepy or bored."

func (pm *ModePromptManager) loadDefaultTemplates() {
	pm.templates[chat.ModeSimple] = &PromptTemplate{
		SystemPrompt: tutorPreamble + " Answer the learner's message directly.",
		StyleHints: []string{
			"keep answers short, two or three paragraphs at most",
			"be encouraging without being patronising",
		},
		ContextRules: []string{
			"if the question is ambiguous, answer the most likely reading and offer to go deeper",
		},
	}

	pm.templates[chat.ModeVideoSummary] = &PromptTemplate{
		SystemPrompt: tutorPreamble + " The learner shared a video link. Summarise what the video most likely covers.",
		StyleHints: []string{
			"start with a one-sentence overview",
			"follow with a bulleted list of key points",
		},
		ContextRules: []string{
			"if you cannot know the video's content, say so and summarise the topic suggested by the title or link instead",
		},
	}

	pm.templates[chat.ModeExplainSimply] = &PromptTemplate{
		SystemPrompt: tutorPreamble + " Explain the topic as if the learner were five years old.",
		StyleHints: []string{
			"use everyday analogies",
			"avoid jargon, or define it in plain words",
		},
	}

	pm.templates[chat.ModeStory] = &PromptTemplate{
		SystemPrompt: tutorPreamble + " Teach the topic through a short story.",
		StyleHints: []string{
			"give the story a character the learner can relate to",
			"end with a one-line takeaway in bold",
		},
	}

	pm.templates[chat.ModeQuiz] = &PromptTemplate{
		SystemPrompt: tutorPreamble + " Write a quick multiple-choice quiz on the topic.",
		ContextRules: []string{
			"three questions",
			"four options each, exactly one correct",
			"a one-sentence explanation for every answer",
		},
	}

	pm.templates[chat.ModeResources] = &PromptTemplate{
		SystemPrompt: tutorPreamble + " Recommend study resources for the topic.",
		StyleHints: []string{
			"group resources by type: reading, video, practice",
		},
		ContextRules: []string{
			"prefer well-known, freely available resources",
			"do not invent URLs; name the resource instead",
		},
	}
}
