// Package protocol implements the Assuan response state machine.
//
// ReadResponse consumes lines from a buffered reader until a terminal OK or
// ERR line, accumulating data lines and dispatching status lines:
//
//	r := bufio.NewReader(conn)
//	res, err := protocol.ReadResponse(log, r, "GETINFO", nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%s\n", res.Data)
package protocol
