// Package channel provides the duplex byte transport an Assuan session runs
// over: a child process's piped stdio, an independent reader and writer, or
// one bidirectional connection split into read and write halves.
package channel
