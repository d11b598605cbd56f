// Package citation turns stored AI Overview snapshots into keyword records.
//
// It normalizes and compares domains, extracts ranked references from the
// stored JSON array, correlates inline citation markers in the overview
// markdown with those references by domain, and computes the tracked brand's
// rank. Every function is pure: malformed input degrades to an empty or
// default value and never produces an error.
package citation
