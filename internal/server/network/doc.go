// Package network hands verified transactions to the clearing network.
//
// A Dispatcher run prepares a batch, archives its manifest to object
// storage, publishes a batch event to RabbitMQ and finally marks the
// transactions submitted. The Scheduler triggers runs on a cron schedule.
package network
