// Package events publishes QC events (window evaluated, window removed, floor
// added or removed, project cleared) to Kafka so downstream systems can
// follow an inspection as it happens.
//
// Publication is optional. Nop is used when events are disabled; Kafka wraps
// a kafka-go Writer and keys each message by floor so a floor's events stay
// ordered within one partition.
package events
