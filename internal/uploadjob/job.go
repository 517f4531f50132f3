package uploadjob

// filesWithStatus returns every file currently in status s. The job mutex
// is held only long enough to copy the slice of pointers; FileState
// mutation afterwards still happens under the mutex.
func (j *Job) filesWithStatus(s FileStatus) []*FileState {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []*FileState

	for _, f := range j.Files {
		if f.Status == s {
			out = append(out, f)
		}
	}

	return out
}

// filterFiles returns the subset of files for which pred returns true.
func filterFiles(files []*FileState, pred func(*FileState) bool) []*FileState {
	var out []*FileState

	for _, f := range files {
		if pred(f) {
			out = append(out, f)
		}
	}

	return out
}

// countStatus counts files whose current status equals s.
func countStatus(files []*FileState, s FileStatus) int {
	n := 0

	for _, f := range files {
		if f.Status == s {
			n++
		}
	}

	return n
}

// computeAnalysisStatus derives the job status after analysis: ready if
// any file is ready, else failed. A file already `skipped`
// by pre-filter counts as workable too, since it needs no further
// analysis and the job should still proceed to the upload phase.
func (j *Job) computeAnalysisStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, f := range j.Files {
		if f.Status == FileStatusReady || f.Status == FileStatusSkipped {
			return JobStatusReady
		}
	}

	return JobStatusFailed
}

// claimTerminal returns true exactly once per job — the first caller to
// observe a terminal status claims responsibility for running the
// terminal side-effect sequence, preventing a concurrent
// Cancel and an in-flight Upload from both firing it.
func (j *Job) claimTerminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.terminalFired {
		return false
	}

	j.terminalFired = true

	return true
}

// computeUploadStatus derives the job status after upload:
// cancelled if the cancel flag is set, else completed if all files ended
// completed|skipped, else completed if any file completed (partial
// success still counts as a job-level success), else failed.
func (j *Job) computeUploadStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelled {
		return JobStatusCancelled
	}

	allDone := true
	anyCompleted := false

	for _, f := range j.Files {
		switch f.Status {
		case FileStatusCompleted:
			anyCompleted = true
		case FileStatusSkipped:
			// counts toward allDone, not anyCompleted
		default:
			allDone = false
		}
	}

	if allDone {
		return JobStatusCompleted
	}

	if anyCompleted {
		return JobStatusCompleted
	}

	return JobStatusFailed
}
