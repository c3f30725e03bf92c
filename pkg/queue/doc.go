// Package queue fetches bounded batches from an SQS queue.
//
// SQS caps a single ReceiveMessage call at ten messages. Client.Fetch splits a larger
// budget into chunks, issues every chunk concurrently and merges whatever the queue
// returned. Send and Delete expose the remaining raw queue operations used by
// processing functions.
package queue
