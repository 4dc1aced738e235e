// Package audit archives reconciliation pass reports in object storage.
//
// Each report (pass id, mode, timestamps, one decision per processed user and
// the summary) is written as an indented JSON object under a date-partitioned
// key, so the decision trail of every pass, including failed ones, can be
// inspected later.
package audit
