// Package stage defines the contract shared by provisioning stages.
//
// Each stage implements Handler and returns an Outcome classifying its result as
// success, skipped, recoverable failure, or fatal failure. The pipeline in
// internal/provision interprets outcomes; stages never terminate the process.
package stage
