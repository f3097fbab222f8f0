// Package filter compiles CEL expressions evaluated against events. It backs
// server-side tail filtering and lifecycle admission.
//
// Variables:
//   - category   (string) category name
//   - key        (string) encoded record key
//   - fields     (dyn)    record document, e.g. fields.city == "Austin"
//   - issue_type (string) serviceIssue.type, e.g. issue_type in ["fiber", "edge"]
//   - now_ms     (int)    evaluation time in Unix milliseconds
package filter
