package jobs

import "context"

// LoggingHandler is a default handler that reports progress and echoes
// back a status payload without doing real work, grounded on worker.rs's
// LoggingJobHandler. Useful as a smoke-test handler and as a fallback
// while real handlers for a job type are still under development.
type LoggingHandler struct{}

func (LoggingHandler) Name() string { return "logging" }

func (LoggingHandler) CanHandle(jobType Type) bool { return true }

func (LoggingHandler) Handle(ctx context.Context, job *Job, wctx *WorkerContext) (map[string]any, error) {
	wctx.ReportProgress(job.ID, 0, "starting")

	switch job.Type {
	case TypeSkillExecution:
		skillID, _ := job.Payload["skill_id"].(string)
		toolName, _ := job.Payload["tool_name"].(string)
		wctx.ReportProgressWithDetails(job.ID, 50, "executing skill", "running "+skillID+":"+toolName)
		wctx.ReportProgress(job.ID, 100, "completed")
		return map[string]any{"status": "success", "skill": skillID, "tool": toolName}, nil

	case TypeExampleGeneration:
		skillID, _ := job.Payload["skill_id"].(string)
		wctx.ReportProgressWithDetails(job.ID, 50, "generating examples", "processing tools for "+skillID)
		wctx.ReportProgress(job.ID, 100, "completed")
		return map[string]any{"status": "success", "skill": skillID}, nil

	case TypeSkillIndexing:
		skillID, _ := job.Payload["skill_id"].(string)
		wctx.ReportProgressWithDetails(job.ID, 50, "indexing skill", skillID)
		wctx.ReportProgress(job.ID, 100, "completed")
		return map[string]any{"status": "success", "skill": skillID}, nil

	default:
		wctx.ReportProgress(job.ID, 100, "completed")
		return map[string]any{"status": "success"}, nil
	}
}
