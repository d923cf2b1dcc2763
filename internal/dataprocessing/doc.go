// Package dataprocessing turns raw enrollment tables into dashboard metrics.
//
// # Architecture
//
// The package has two stages, both pure functions over *domain.Table:
//
// 1. Normalizer: renames source headers onto canonical columns and derives
// Status_Clean, Is_Completed and Completion_Status
// 2. Aggregator: folds the normalized rows into a KPISummary and the
// Tutor, Team and Course breakdowns
//
// Month filtering and value distributions sit next to the aggregator and feed
// the dashboard filter and charts.
//
// # Usage
//
//	normalized := dataprocessing.Normalize(raw, dataprocessing.StrictClassifier)
//	summary := dataprocessing.Summarize(normalized)
//	tutors := dataprocessing.BreakdownBy(normalized, domain.BreakdownTutor)
//
// # Data Flow
//
//	Source table → Normalize → FilterByMonth → Summarize / BreakdownBy → reports
//
// # Missing Data
//
// Absent columns never produce errors. A missing grouping column yields an
// empty breakdown, a missing or all-null Tutor/Team/Course column yields N/A
// as the top value, and zero denominators yield a 0 rate.
package dataprocessing
