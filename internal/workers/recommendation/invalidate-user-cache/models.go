// internal/workers/recommendation/invalidate-user-cache/models.go
package invalidateusercache

import "venue-signals/internal/common/validation"

type Input struct {
	UserID string `json:"userId"`
}

type Output struct {
	Invalidated int `json:"invalidatedEntries"`
}

var inputSchema = validation.MustSchema(TaskType, `{
	"type": "object",
	"required": ["userId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1}
	}
}`)
