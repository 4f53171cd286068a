package domain

import "time"

// Pipeline stage numbers are fixed; the list below is the template every new
// handover pipeline is seeded from.
const (
	StagePreparation           = 1
	StageDocumentationSurvey   = 2
	StageFinancialVerification = 3
	StageLegalDocumentation    = 4
	StageFinalHandover         = 5

	StageCount = 5
)

var stageNames = [StageCount]string{
	"Preparation",
	"Documentation & Survey",
	"Financial Verification",
	"Legal Documentation",
	"Final Handover",
}

// PipelineStage is one named step in the handover pipeline.
type PipelineStage struct {
	Number      int        `json:"number"`
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// PipelineSeed is the initial pipeline state derived from interest milestones.
type PipelineSeed struct {
	CurrentStage    int
	OverallProgress int
	Stages          []PipelineStage
}

// SeedPipeline builds the initial stage list for a new handover pipeline.
// Milestones already satisfied when handover starts advance the baseline:
// a verified deposit puts the pipeline at stage two, a signed agreement at
// stage three.
func SeedPipeline(depositPaid, agreementSigned bool, now time.Time) PipelineSeed {
	currentStage := StagePreparation
	if depositPaid {
		currentStage = StageDocumentationSurvey
	}
	if agreementSigned {
		currentStage = StageFinancialVerification
	}

	stages := make([]PipelineStage, 0, StageCount)
	for i, name := range stageNames {
		number := i + 1
		stage := PipelineStage{Number: number, Name: name}
		if number < currentStage {
			stage.Completed = true
			started := now
			completed := now
			stage.StartedAt = &started
			stage.CompletedAt = &completed
		}
		if number == currentStage {
			started := now
			stage.StartedAt = &started
		}
		stages = append(stages, stage)
	}

	return PipelineSeed{
		CurrentStage:    currentStage,
		OverallProgress: StageProgress(currentStage - 1),
		Stages:          stages,
	}
}

// StageProgress maps a count of completed stages onto 0-100.
func StageProgress(completedStages int) int {
	if completedStages < 0 {
		completedStages = 0
	}
	if completedStages > StageCount {
		completedStages = StageCount
	}
	return completedStages * 100 / StageCount
}
