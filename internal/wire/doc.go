// Package wire implements the Assuan line framing.
//
// Requests are a command name followed by space separated arguments in which
// CR, LF, '%' and space are percent-escaped. Responses are classified by their
// leading token into OK, ERR, data, status, comment and inquire lines.
package wire
