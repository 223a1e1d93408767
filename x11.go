package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"gokirun/internal/swarm"
)

const (
	netWMStateAdd         = 1
	netWMSourceNormal     = 1
	maxClientListLen      = 4096
	overlayLookupInterval = 250 * time.Millisecond
	overlayLookupTimeout  = 10 * time.Second
)

var (
	errNoWorkArea      = errors.New("_NET_WORKAREA not set")
	errNoAtom          = errors.New("atom not known to the X server")
	errWindowNotFound  = errors.New("no client window with our pid")
	errNotCardinalList = errors.New("property is not a 32-bit list")
)

// x11Desktop reads desktop state from the X server. The connection is safe
// for concurrent use, so the occluder feed and the game loop share it.
type x11Desktop struct {
	conn   *xgb.Conn
	root   xproto.Window
	width  int
	height int
}

// pointerState is one sample of the global pointer.
type pointerState struct {
	Pos     swarm.Vec2
	Pressed bool
}

func openX11Desktop() (*x11Desktop, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connecting to X server: %w", err)
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	return &x11Desktop{
		conn:   conn,
		root:   screen.Root,
		width:  int(screen.WidthInPixels),
		height: int(screen.HeightInPixels),
	}, nil
}

// Occluders lists the viewable top-level windows in root coordinates.
// Windows covering the whole screen are skipped; that includes the overlay
// itself and any full-screen desktop window.
func (d *x11Desktop) Occluders() ([]swarm.Rect, error) {
	tree, err := xproto.QueryTree(d.conn, d.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("querying window tree: %w", err)
	}
	rects := make([]swarm.Rect, 0, len(tree.Children))
	for _, win := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(d.conn, win).Reply()
		if err != nil || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		geom, err := xproto.GetGeometry(d.conn, xproto.Drawable(win)).Reply()
		if err != nil || geom.Width == 0 || geom.Height == 0 {
			continue
		}
		if int(geom.Width) >= d.width && int(geom.Height) >= d.height {
			continue
		}
		pos, err := xproto.TranslateCoordinates(d.conn, win, d.root, 0, 0).Reply()
		if err != nil {
			continue
		}
		x, y := float32(pos.DstX), float32(pos.DstY)
		rects = append(rects, swarm.Rect{
			MinX: x,
			MinY: y,
			MaxX: x + float32(geom.Width),
			MaxY: y + float32(geom.Height),
		})
	}
	return rects, nil
}

// WorkArea returns the desktop area not reserved by panels and docks.
func (d *x11Desktop) WorkArea() (swarm.Bounds, error) {
	atom, err := d.atom("_NET_WORKAREA")
	if err != nil {
		return swarm.Bounds{}, err
	}
	vals, err := d.cardinals(d.root, atom, xproto.AtomCardinal, 4)
	if err != nil {
		return swarm.Bounds{}, fmt.Errorf("reading _NET_WORKAREA: %w", err)
	}
	if len(vals) < 4 {
		return swarm.Bounds{}, errNoWorkArea
	}
	x, y := float32(int32(vals[0])), float32(int32(vals[1]))
	w, h := float32(vals[2]), float32(vals[3])
	return swarm.Bounds{Min: swarm.Vec2{X: x, Y: y}, Max: swarm.Vec2{X: x + w, Y: y + h}}, nil
}

// Pointer samples the global pointer position in root coordinates and
// whether the left button is held, wherever the pointer is.
func (d *x11Desktop) Pointer() (pointerState, error) {
	reply, err := xproto.QueryPointer(d.conn, d.root).Reply()
	if err != nil {
		return pointerState{}, fmt.Errorf("querying pointer: %w", err)
	}
	return pointerState{
		Pos:     swarm.Vec2{X: float32(reply.RootX), Y: float32(reply.RootY)},
		Pressed: reply.Mask&xproto.KeyButMaskButton1 != 0,
	}, nil
}

// KeepBelow waits for the client window owned by pid to be managed and asks
// the window manager to stack it below normal windows. Failures are logged;
// the overlay still works, it just draws above other windows.
func (d *x11Desktop) KeepBelow(ctx context.Context, pid int) error {
	ticker := time.NewTicker(overlayLookupInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(overlayLookupTimeout)
	defer deadline.Stop()
	for {
		win, err := d.windowOfPID(uint32(pid))
		switch {
		case err == nil:
			if err := d.setStateBelow(win); err != nil {
				log.Printf("Cannot keep overlay below other windows: %v", err)
			}
			return nil
		case !errors.Is(err, errWindowNotFound):
			log.Printf("Cannot find the overlay window: %v", err)
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			log.Printf("Overlay window never showed up in _NET_CLIENT_LIST")
			return nil
		case <-ticker.C:
		}
	}
}

func (d *x11Desktop) windowOfPID(pid uint32) (xproto.Window, error) {
	clientList, err := d.atom("_NET_CLIENT_LIST")
	if err != nil {
		return 0, err
	}
	pidAtom, err := d.atom("_NET_WM_PID")
	if err != nil {
		return 0, err
	}
	clients, err := d.cardinals(d.root, clientList, xproto.AtomWindow, maxClientListLen)
	if err != nil {
		return 0, fmt.Errorf("reading _NET_CLIENT_LIST: %w", err)
	}
	for _, c := range clients {
		win := xproto.Window(c)
		vals, err := d.cardinals(win, pidAtom, xproto.AtomCardinal, 1)
		if err == nil && len(vals) == 1 && vals[0] == pid {
			return win, nil
		}
	}
	return 0, errWindowNotFound
}

// setStateBelow sends the EWMH _NET_WM_STATE request adding
// _NET_WM_STATE_BELOW to win.
func (d *x11Desktop) setStateBelow(win xproto.Window) error {
	state, err := d.atom("_NET_WM_STATE")
	if err != nil {
		return err
	}
	below, err := d.atom("_NET_WM_STATE_BELOW")
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   state,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{netWMStateAdd, uint32(below), 0, netWMSourceNormal, 0}),
	}
	mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
	if err := xproto.SendEventChecked(d.conn, false, d.root, mask, string(ev.Bytes())).Check(); err != nil {
		return fmt.Errorf("sending _NET_WM_STATE: %w", err)
	}
	return nil
}

// atom looks up an existing atom without creating it.
func (d *x11Desktop) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(d.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("interning %s: %w", name, err)
	}
	if reply.Atom == xproto.AtomNone {
		return 0, fmt.Errorf("%w: %s", errNoAtom, name)
	}
	return reply.Atom, nil
}

// cardinals reads up to n 32-bit items of a property of type typ.
func (d *x11Desktop) cardinals(win xproto.Window, prop, typ xproto.Atom, n uint32) ([]uint32, error) {
	reply, err := xproto.GetProperty(d.conn, false, win, prop, typ, 0, n).Reply()
	if err != nil {
		return nil, err
	}
	if reply.ValueLen == 0 {
		return nil, nil
	}
	return decodeCardinals(reply.Format, reply.Value)
}

// decodeCardinals unpacks a format-32 property value.
func decodeCardinals(format byte, value []byte) ([]uint32, error) {
	if format != 32 {
		return nil, fmt.Errorf("%w: format %d", errNotCardinalList, format)
	}
	vals := make([]uint32, 0, len(value)/4)
	for i := 0; i+4 <= len(value); i += 4 {
		vals = append(vals, xgb.Get32(value[i:]))
	}
	return vals, nil
}

// ScreenSize returns the root window size in physical pixels.
func (d *x11Desktop) ScreenSize() (int, int) {
	return d.width, d.height
}

func (d *x11Desktop) Close() {
	d.conn.Close()
}
