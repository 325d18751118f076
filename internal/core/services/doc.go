// Package services implements the driving port interfaces.
//
// The chat pipeline is assembled from small components: DocumentService
// registers documents, IndexingService turns a document into a vector
// namespace exactly once, HistoryService loads and records the conversation,
// and ChatService runs one question through rephrase, retrieve and answer.
// Services talk to infrastructure only through the driven ports.
package services
