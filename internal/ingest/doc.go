// Package ingest feeds records into category collections.
//
// Two sources exist: Synthetic generates randomized incidents on a timer
// (dev/demo mode) and Kafka consumes JSON documents from a topic. Both write
// through a storage.Appender and report to a Hook.
package ingest
