// Package forge wraps pull-request and CI-check lookups against a code
// review platform. Lookups are independent per branch: one branch failing
// (no PR, rate limit, auth hiccup) never aborts lookups for the others,
// it just leaves that branch's review fields unknown.
package forge
