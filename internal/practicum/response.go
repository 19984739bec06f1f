package practicum

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v3"

	"github.com/cexll/homework-bot/internal/verdict"
)

// Homework is a submitted assignment as returned by the review API.
type Homework struct {
	ID              int64  `json:"id"`
	HomeworkName    string `json:"homework_name"`
	Status          string `json:"status"`
	ReviewerComment string `json:"reviewer_comment"`
	DateUpdated     string `json:"date_updated"`
	LessonName      string `json:"lesson_name"`
}

// Validate checks the fields needed to build a notification.
func (h *Homework) Validate() error {
	return validation.ValidateStruct(
		h,
		validation.Field(&h.HomeworkName, validation.Required.Error("отсутствует в информации о домашней работе")),
		validation.Field(&h.Status, validation.Required.Error("отсутствует в информации о домашней работе")),
	)
}

// Answer is a validated API response.
type Answer struct {
	Homeworks []Homework
	// CurrentDate is the checkpoint for the next poll.
	CurrentDate int64
}

// CheckResponse validates the shape of a raw API answer: it must be a JSON
// object with a "homeworks" list and an integer "current_date".
func CheckResponse(body []byte) (*Answer, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: ответ API не является словарем: %v", ErrInvalidResponse, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: ответ API не является словарем", ErrInvalidResponse)
	}

	rawHomeworks, ok := present(fields, "homeworks")
	if !ok {
		return nil, fmt.Errorf(`%w: в ответе API отсутствует ключ "homeworks"`, ErrInvalidResponse)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(rawHomeworks), []byte("[")) {
		return nil, fmt.Errorf(`%w: домашние работы не представлены в виде списка`, ErrInvalidResponse)
	}

	rawDate, ok := present(fields, "current_date")
	if !ok {
		return nil, fmt.Errorf(`%w: в ответе API отсутствует ключ "current_date"`, ErrInvalidResponse)
	}

	answer := &Answer{}
	if err := json.Unmarshal(rawHomeworks, &answer.Homeworks); err != nil {
		return nil, fmt.Errorf(`%w: некорректный список "homeworks": %v`, ErrInvalidResponse, err)
	}
	if err := json.Unmarshal(rawDate, &answer.CurrentDate); err != nil {
		return nil, fmt.Errorf(`%w: ключ "current_date" не является целым числом: %v`, ErrInvalidResponse, err)
	}

	return answer, nil
}

// present returns the raw value for key unless it is absent or null.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

// ParseStatus builds the notification text for a homework.
func ParseStatus(hw Homework, catalog *verdict.Catalog) (string, error) {
	if err := hw.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	text, ok := catalog.Lookup(hw.Status)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStatus, hw.Status)
	}

	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", hw.HomeworkName, text), nil
}
