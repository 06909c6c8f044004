// Package preflight provides readiness checks for the directories and
// endpoints Courier depends on.
//
// These checks run in two contexts:
//   - The agent runs RunAll at startup and logs failures; a failed check is
//     not fatal because the queue keeps accepting actions regardless.
//   - The CLI "courier status" command renders the results so a user can see
//     at a glance why deliveries are not happening.
package preflight
