// Package preflight provides readiness checks for the webhook endpoint,
// the renderer binary and the filesystem paths renderhook writes to.
//
// These checks run in two contexts:
//   - "renderhook doctor" runs RunAll and prints every result.
//   - "renderhook config validate" runs the directory checks after the
//     config file itself has been validated.
//
// Checks never send a notification: the endpoint check only opens a TCP
// connection to the webhook host.
package preflight
