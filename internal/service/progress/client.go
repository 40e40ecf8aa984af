package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aulaplatform/aulaledger/internal/logger"
)

const (
	CodeNoProgress = "no-progress"
	CodeUnknown    = "unknown"
)

type ProgressError struct {
	Code string
	Err  error
}

func (e *ProgressError) Error() string {
	return fmt.Sprintf("code: %s, error: %v", e.Code, e.Err)
}

func NewProgressError(code string, err error) *ProgressError {
	return &ProgressError{Code: code, Err: err}
}

// StudentProgress is the coarse AulaCoins figure the user-progress
// collaborator reports for a student
type StudentProgress struct {
	StudentID string          `json:"student_id"`
	AulaCoins decimal.Decimal `json:"aula_coins"`
}

type Client struct {
	ProgressAddr string

	client *http.Client
	logger logger.Logger
}

func NewClient(addr string, l logger.Logger) *Client {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		ProgressAddr: addr,
		client:       &http.Client{},
		logger:       l,
	}
}

func (c *Client) GetStudentProgress(ctx context.Context, studentID string) (StudentProgress, error) {
	var p StudentProgress

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ProgressAddr+"/api/students/"+studentID+"/progress", nil)
	if err != nil {
		return p, NewProgressError(CodeUnknown, fmt.Errorf("failed to create request: %w", err))
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return p, NewProgressError(CodeUnknown, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		err := json.NewDecoder(resp.Body).Decode(&p)
		if err != nil {
			c.logger.Warn("Failed to decode progress response", "error", err)
			return p, NewProgressError(CodeUnknown, fmt.Errorf("failed to decode response: %w", err))
		}

		c.logger.Debug("Progress response", "student_id", p.StudentID, "aula_coins", p.AulaCoins)
		return p, nil
	case http.StatusNoContent, http.StatusNotFound:
		return p, NewProgressError(CodeNoProgress, fmt.Errorf("no progress for student %s", studentID))
	default:
		c.logger.Warn("Failed to get progress", "status_code", resp.StatusCode, "student_id", studentID)
		return p, NewProgressError(CodeUnknown, fmt.Errorf("unknown status code %d for student %s", resp.StatusCode, studentID))
	}
}
