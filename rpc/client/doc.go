// Package client implements a blocking client for the skv line protocol.
//
// The client is meant for tools and tests, one request is written and its
// response is read before the next request is sent. It is not used by the
// benchmark, which drives its connections through the reactor.
//
// Usage Example:
//
//	c, err := client.Dial(common.DefaultTransportConfig(), 5*time.Second)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Put("0000000000000001", "hello"); err != nil {
//		return err
//	}
//	value, found, err := c.Get("0000000000000001")
package client
