// Package testutil provides fakes and harnesses for testing log archives.
//
// [MemStore] is an in-memory filestore.Store with configurable owners and
// failures. [FakeAdmitter] wraps an access.Admitter to force rejections and
// to run hooks between admission and copy. [GrowingFile] writes a real file
// in two phases with a rendezvous between them, which lets a test pin the
// moment a file is admitted while another writer is still appending to it.
package testutil
