// Package events names the in-process events published on the hub and the
// payloads they carry.
package events

const (
	// ReportCreated a report was submitted
	// 	Fields:
	// 		report: *models.Report
	ReportCreated = "report.created"
	// ReportStatusChanged a report moved along the status workflow
	// 	Fields:
	// 		report: *models.Report
	// 		from: string
	// 		to: string
	ReportStatusChanged = "report.status_changed"
	// ReportMessagePosted a message was appended to a report's communication log
	// 	Fields:
	// 		report: *models.Report
	ReportMessagePosted = "report.message_posted"
	// ReportEscalated a report was escalated to an external agency
	// 	Fields:
	// 		report: *models.Report
	// 		agency: string
	ReportEscalated = "report.escalated"
	// UserStatusChanged an account was approved or rejected
	// 	Fields:
	// 		user: *models.User
	UserStatusChanged = "user.status_changed"

	// ReportAll matches every report.* topic.
	ReportAll = "report.*"
)
