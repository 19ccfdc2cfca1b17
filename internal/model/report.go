package model

import "time"

type JobReportRow struct {
	Job         Job
	Total       int64
	Sent        int64
	Shortlisted int64
	Accepted    int64
	Rejected    int64
	Withdrawn   int64
	Executor    *UserCard
}

// JobsReport is the customer's spreadsheet export of their jobs.
type JobsReport struct {
	Owner       User
	GeneratedAt time.Time
	Rows        []JobReportRow
}
