package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/hoardapp/hoard/hoard"
)

const eventKeepAliveInterval = 25 * time.Second

// memberEvents streams trade lifecycle cues to one member's session as
// server-sent events. The payload is routing data only; the client reacts by
// refetching its trade lists.
func memberEvents(app *hoard.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		memberID := c.Params("memberID")
		sub := app.Bus.Subscribe(memberID)

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer sub.Close()

			keepAlive := time.NewTicker(eventKeepAliveInterval)
			defer keepAlive.Stop()

			for {
				select {
				case ev, ok := <-sub.C:
					if !ok {
						return
					}
					payload, err := json.Marshal(ev)
					if err != nil {
						return
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
					if err := w.Flush(); err != nil {
						// Client went away; closing the subscription stops
						// further fan-out to this session.
						return
					}
				case <-keepAlive.C:
					fmt.Fprint(w, ": keep-alive\n\n")
					if err := w.Flush(); err != nil {
						return
					}
				}
			}
		}))
		return nil
	}
}
