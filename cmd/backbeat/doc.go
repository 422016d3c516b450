// Command backbeat reconciles listening history against a scrobble service.
//
// The run command executes one reconciliation pass; the history commands
// inspect and maintain the local scrobble history; config manages the
// configuration file.
package main
