// Package events defines the envelope and payload types carried on the
// in-process event bus: run.started, job.assigned, robot.updated,
// snapshot.tick, telemetry.received, run.completed and their siblings.
package events
