package domain

import "time"

// QuestionType determines how a question is rendered and how its answer is stored.
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionNumber   QuestionType = "number"
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionGender   QuestionType = "gender"
	QuestionImage    QuestionType = "image"
	QuestionUpload   QuestionType = "upload"
	QuestionBoolean  QuestionType = "boolean"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionNumber, QuestionSingle, QuestionMultiple,
		QuestionGender, QuestionImage, QuestionUpload, QuestionBoolean:
		return true
	}
	return false
}

// Option is one selectable choice of a question.
type Option struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	SubLabel string   `json:"subLabel,omitempty"`
	Value    string   `json:"value"`
	Images   []string `json:"images,omitempty"`
	Order    int      `json:"order"`
}

// Question is immutable once loaded for a session.
type Question struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"question"`
	Type        QuestionType `json:"type"`
	Section     int          `json:"section"`
	Order       int          `json:"order"`
	Placeholder string       `json:"placeholder,omitempty"`
	Disclaimer  string       `json:"disclaimer,omitempty"`
	Required    bool         `json:"isRequired"`
	Options     []Option     `json:"options,omitempty"`
}

// HasOption reports whether value matches one of the question's option values.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Category is the display band for questions sharing a section number.
type Category struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Order    int    `json:"order"`
}

// User is identified by normalized phone number.
type User struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AnswerRecord is unique per (UserID, QuestionID).
type AnswerRecord struct {
	UserID     string      `json:"userId"`
	QuestionID string      `json:"questionId"`
	Value      AnswerValue `json:"value"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// CompletionStatus is the result of a completion check.
type CompletionStatus struct {
	Exists       bool   `json:"exists"`
	HasCompleted bool   `json:"hasCompleted"`
	UserID       string `json:"userId,omitempty"`
}

// Submission is the full answer set sent when the quiz ends.
type Submission struct {
	Phone   string                 `json:"phone"`
	Name    string                 `json:"name,omitempty"`
	Email   string                 `json:"email,omitempty"`
	Answers map[string]AnswerValue `json:"answers"`
}

// SubmissionResult identifies the stored user.
type SubmissionResult struct {
	UserID string `json:"userId"`
	Phone  string `json:"phone"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Well-known question identifiers that carry identity fields.
const (
	QuestionIDName  = "name"
	QuestionIDPhone = "phone"
	QuestionIDEmail = "email"
)
