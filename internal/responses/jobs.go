package responses

// JobResult covers the run_job outcomes.
type JobResult struct {
	Envelope
	JobID           string    `json:"job_id"`
	JobName         string    `json:"job_name,omitempty"`
	ErrorDetails    string    `json:"error_details,omitempty"`
	Troubleshooting []string  `json:"troubleshooting,omitempty"`
	NextSteps       NextSteps `json:"next_steps"`
}

// JobConnectionError reports a failed jobs call.
func JobConnectionError(jobID, details string) *ConnectionError {
	return &ConnectionError{
		Envelope:        env("connection_error", "Could not connect to Overseerr to run job"),
		ErrorDetails:    details,
		JobID:           jobID,
		Troubleshooting: serviceTroubleshooting,
		NextSteps:       &NextSteps{Suggestion: "Try running test_connection service first to verify setup"},
	}
}

// JobNotFound reports an unknown job id.
func JobNotFound(jobID, details string) *JobResult {
	return &JobResult{
		Envelope:     env("job_not_found", "Job '"+jobID+"' not found in Overseerr"),
		JobID:        jobID,
		ErrorDetails: details,
		Troubleshooting: []string{
			"Check if the job ID is spelled correctly",
			"Use the get_active_requests service to see available jobs",
			"Verify the job exists in Overseerr settings",
		},
		NextSteps: NextSteps{Suggestion: "Check the Jobs Status sensor for available job IDs"},
	}
}

// JobStarted reports a triggered job.
func JobStarted(jobID, jobName string) *JobResult {
	return &JobResult{
		Envelope: env("job_started", "Successfully triggered job: "+orDefault(jobName, jobID)),
		JobID:    jobID,
		JobName:  jobName,
		NextSteps: NextSteps{
			Suggestion: "Monitor the Jobs Status sensor to see when the job completes",
			Note:       "The job is now running in the background on your Overseerr server",
		},
	}
}

// JobRunFailed reports a job Overseerr refused to start.
func JobRunFailed(jobID, details string) *JobResult {
	return &JobResult{
		Envelope:     env("job_run_failed", "Failed to run job '"+jobID+"'"),
		JobID:        jobID,
		ErrorDetails: details,
		Troubleshooting: []string{
			"Job may already be running",
			"Check Overseerr server logs for details",
			"Verify user permissions for running jobs",
		},
		NextSteps: NextSteps{Suggestion: "Wait a moment and check the Jobs Status sensor to see if the job is running"},
	}
}

// JobUserNotMapped refuses a job run by an unmapped caller.
func JobUserNotMapped(jobID, username string) *UserNotMapped {
	r := userNotMapped("run jobs", "job operations", "run maintenance jobs", notMappedDetails(username))
	r.JobID = jobID
	return r
}
