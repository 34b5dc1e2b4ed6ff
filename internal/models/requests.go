package models

import "encoding/json"

// SubjectTeacherInput is one teacher contact supplied at subject creation.
type SubjectTeacherInput struct {
	Name          string  `json:"name" validate:"required"`
	Email         string  `json:"email" validate:"required,email"`
	Phone         *string `json:"phone,omitempty"`
	Qualification *string `json:"qualification,omitempty"`
}

// CreateSubjectRequest creates a subject together with its term/week scaffold.
type CreateSubjectRequest struct {
	Name        string                `json:"name" validate:"required"`
	Description *string               `json:"description,omitempty"`
	Level       EducationLevel        `json:"level" validate:"required,oneof=JC O-Level A-Level"`
	ExamBoard   ExamBoard             `json:"exam_board" validate:"required,oneof=ZIMSEC Cambridge"`
	SchoolID    *string               `json:"school_id,omitempty"`
	Icon        string                `json:"icon,omitempty"`
	Teachers    []SubjectTeacherInput `json:"teachers,omitempty" validate:"dive"`
}

// UpdateSubjectRequest modifies subject metadata.
type UpdateSubjectRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Level       *EducationLevel `json:"level,omitempty" validate:"omitempty,oneof=JC O-Level A-Level"`
	ExamBoard   *ExamBoard      `json:"exam_board,omitempty" validate:"omitempty,oneof=ZIMSEC Cambridge"`
	SchoolID    *string         `json:"school_id,omitempty"`
	Icon        *string         `json:"icon,omitempty"`
}

// CreateChapterRequest creates a chapter inside a week. Order is assigned by
// the server.
type CreateChapterRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// UpdateChapterRequest modifies chapter metadata.
type UpdateChapterRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateContentRequest creates a content item inside a chapter.
type CreateContentRequest struct {
	Title              string        `json:"title" validate:"required"`
	Type               ContentKind   `json:"type" validate:"required,oneof=video pdf quiz notes"`
	Description        *string       `json:"description,omitempty"`
	FileURL            *string       `json:"file_url,omitempty"`
	FileSize           *int64        `json:"file_size,omitempty"`
	Duration           *string       `json:"duration,omitempty"`
	EstimatedStudyTime *string       `json:"estimated_study_time,omitempty"`
	Status             ContentStatus `json:"status,omitempty" validate:"omitempty,oneof=draft published review archived"`
	Tags               []string      `json:"tags,omitempty"`
	QuizData           *QuizData     `json:"quiz_data,omitempty"`
}

// UpdateContentRequest modifies a content item.
type UpdateContentRequest struct {
	Title              *string        `json:"title,omitempty"`
	Description        *string        `json:"description,omitempty"`
	FileURL            *string        `json:"file_url,omitempty"`
	FileSize           *int64         `json:"file_size,omitempty"`
	Duration           *string        `json:"duration,omitempty"`
	EstimatedStudyTime *string        `json:"estimated_study_time,omitempty"`
	Status             *ContentStatus `json:"status,omitempty" validate:"omitempty,oneof=draft published review archived"`
	Tags               []string       `json:"tags,omitempty"`
	QuizData           *QuizData      `json:"quiz_data,omitempty"`
}

// MoveContentRequest swaps a content item with an adjacent sibling.
type MoveContentRequest struct {
	Direction MoveDirection `json:"direction" validate:"required,oneof=up down"`
}

// CreateSchoolRequest registers a school.
type CreateSchoolRequest struct {
	Name          string  `json:"name" validate:"required"`
	Address       *string `json:"address,omitempty"`
	ContactEmail  *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone  *string `json:"contact_phone,omitempty"`
	PrincipalName *string `json:"principal_name,omitempty"`
}

// UpdateSchoolRequest modifies a school.
type UpdateSchoolRequest struct {
	Name          *string `json:"name,omitempty"`
	Address       *string `json:"address,omitempty"`
	ContactEmail  *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone  *string `json:"contact_phone,omitempty"`
	PrincipalName *string `json:"principal_name,omitempty"`
}

// EnrollRequest links a user to a subject.
type EnrollRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// QuizQuestionInput carries one authored question. Labels C and D are
// optional; the correct answer must point at a provided answer.
type QuizQuestionInput struct {
	QuestionText     string      `json:"question_text" validate:"required"`
	QuestionImageURL *string     `json:"question_image_url,omitempty"`
	AnswerA          string      `json:"answer_a" validate:"required"`
	AnswerB          string      `json:"answer_b" validate:"required"`
	AnswerC          *string     `json:"answer_c,omitempty"`
	AnswerD          *string     `json:"answer_d,omitempty"`
	AnswerAImageURL  *string     `json:"answer_a_image_url,omitempty"`
	AnswerBImageURL  *string     `json:"answer_b_image_url,omitempty"`
	AnswerCImageURL  *string     `json:"answer_c_image_url,omitempty"`
	AnswerDImageURL  *string     `json:"answer_d_image_url,omitempty"`
	CorrectAnswer    AnswerLabel `json:"correct_answer" validate:"required,oneof=A B C D"`
	Explanation      *string     `json:"explanation,omitempty"`
	Points           int         `json:"points,omitempty" validate:"omitempty,min=1"`
}

// CreateQuestionsRequest bulk-creates questions for a quiz.
type CreateQuestionsRequest struct {
	Questions []QuizQuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// CreateAttemptRequest records one completed quiz run. Answers carries the
// raw per-question answer snapshot as submitted, stored verbatim as jsonb.
type CreateAttemptRequest struct {
	Score          int             `json:"score" validate:"min=0"`
	TotalQuestions int             `json:"total_questions" validate:"required,min=1"`
	TimeTaken      *int            `json:"time_taken,omitempty" validate:"omitempty,min=0"`
	Answers        json.RawMessage `json:"answers,omitempty"`
	Percentage     float64         `json:"-"`
}
