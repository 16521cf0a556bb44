// Package urltmpl resolves @{name} tokens in URL templates against data
// rows. Unresolved tokens are left in place and logged; resolution is
// best-effort and never fails.
package urltmpl
