package llm

import (
	"fmt"
	"strings"

	"github.com/havenapp/haven/pkg/tasks"
)

// Turn is one prior exchange in the conversation history.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// TaskRef is the slice of a task the model is allowed to see.
type TaskRef struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// ConversationRequest carries everything one conversational turn needs.
// Summaries are expected most recent first.
type ConversationRequest struct {
	Summaries           []string
	UserPersonaText     string
	ChatbotPersonaID    string
	Questions           []string
	ConversationHistory []Turn
	CurrentTasks        []TaskRef
}

// Reply is the model's structured answer. Directive may be empty.
type Reply struct {
	Response  string
	Directive tasks.Directive
}

func summarizePrompt(journalText, moodScale string) string {
	return fmt.Sprintf(`Act as a helpful journal summarizer. The user has described their mood as %s today. Read the following journal entry and provide a concise, factual summary. Focus on key events, people, emotions, and decisions mentioned in the text, reflecting the user's indicated mood. The summary should be easy to read and under 150 words.

Journal Entry:
%s

Summary:`, moodScale, journalText)
}

const converseInstructions = `You are a helpful, human, and compassionate conversational assistant. You are an expert in heart-to-heart conversations and talk like a human. Your goal is to engage in a meaningful dialogue with the user based on their journal entries and help them with actionable tasks when relevant.

IMPORTANT TASK MANAGEMENT INSTRUCTIONS:
1. Based on the conversation and user's needs, you may suggest relevant tasks
2. Only suggest tasks that are directly related to the current conversation or user's expressed needs
3. Keep the active task list to a maximum of 5 tasks
4. If suggesting new tasks would exceed 5 total tasks, identify 1-2 tasks from the current list that seem less relevant or completed and mark them for removal
5. Suggest a maximum of 1-2 new tasks per conversation to avoid overwhelming the user
6. Tasks should be actionable, specific, and achievable
7. Avoid duplicating existing active tasks

Your response should be in the following JSON format:
{
  "response": "Your conversational response here",
  "taskUpdates": {
    "newTasks": [
      {
        "text": "Specific actionable task",
        "reason": "Brief explanation of why this task is relevant"
      }
    ],
    "removeTasks": [
      {
        "id": "task_id_to_remove",
        "reason": "Why this task should be removed (completed, no longer relevant, etc.)"
      }
    ]
  }
}

If no task updates are needed, set "newTasks" and "removeTasks" to empty arrays.`

func conversePrompt(req ConversationRequest) string {
	var active, completed []TaskRef
	for _, t := range req.CurrentTasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}
	if len(completed) > 3 {
		completed = completed[len(completed)-3:]
	}

	var b strings.Builder
	b.WriteString(converseInstructions)

	b.WriteString("\n\nContext:\nJournal entry summaries:\n")
	b.WriteString(strings.Join(req.Summaries, "\n"))

	fmt.Fprintf(&b, "\n\nUser Persona: %s\n", req.UserPersonaText)
	fmt.Fprintf(&b, "Chatbot Persona ID: %s\n", req.ChatbotPersonaID)

	fmt.Fprintf(&b, "\nCurrent Active Tasks (%d):\n", len(active))
	writeTaskLines(&b, active)
	fmt.Fprintf(&b, "\nRecently Completed Tasks (%d):\n", len(completed))
	writeTaskLines(&b, completed)

	b.WriteString("\nConversation History:\n")
	for _, turn := range req.ConversationHistory {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
	}

	question := ""
	if len(req.Questions) > 0 {
		question = req.Questions[len(req.Questions)-1]
	}
	fmt.Fprintf(&b, "\nUser's current question: %s\n\nRespond as JSON:", question)
	return b.String()
}

func writeTaskLines(b *strings.Builder, refs []TaskRef) {
	if len(refs) == 0 {
		b.WriteString("None\n")
		return
	}
	for _, t := range refs {
		fmt.Fprintf(b, "- %s\n", t.Text)
	}
}
