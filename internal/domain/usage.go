package domain

import (
	"time"
)

// GlobalUsageID is the identity of the singleton AI usage row.
const GlobalUsageID = "global"

// AIUsage tracks cumulative tokens and USD spent on the generation service.
// Both totals only ever grow, except through an explicit admin reset.
type AIUsage struct {
	ID           string    `bson:"_id" db:"id" json:"id"`
	TotalTokens  int64     `bson:"totalTokens" db:"total_tokens" json:"totalTokens"`
	TotalCostUSD float64   `bson:"totalCostUsd" db:"total_cost_usd" json:"totalCostUsd"`
	UpdatedAt    time.Time `bson:"updatedAt" db:"updated_at" json:"updatedAt"`
}

// ProgramExport describes a rendered program week uploaded to object storage.
type ProgramExport struct {
	ProgramID   string `json:"programId"`
	WeekNumber  int    `json:"weekNumber"`
	ObjectKey   string `json:"objectKey"`
	DownloadURL string `json:"downloadUrl"`
}
