// Package main hosts the renderhook CLI entrypoint and command graph.
//
// The Cobra-based command tree wraps renders so their lifecycle is reported
// to the configured webhook, sends one-shot notifications from scripts,
// inspects the resolved targets and the delivery journal, and scaffolds
// configuration. Configuration resolution and logging setup live in
// commandContext so subcommands only deal with their own flags.
package main
