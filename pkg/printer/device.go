package printer

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"go.bug.st/serial"
)

// Device is an open byte-stream link to a receipt printer.
type Device interface {
	io.Writer
	io.Closer
}

// DeviceOpener opens the named device.
type DeviceOpener interface {
	Open(ctx context.Context, name string) (Device, error)
}

// drainer is implemented by links that can block until written bytes leave the host.
type drainer interface {
	Drain() error
}

// --- Serial / Bluetooth SPP (e.g. /dev/ttyUSB0, /dev/rfcomm0, COM3) ---

// SerialOpener opens serial ports at a fixed bit rate.
type SerialOpener struct {
	BaudRate int
}

// Open opens the serial port. The returned device can be read, so a session
// notices when the port goes away.
func (o SerialOpener) Open(_ context.Context, name string) (Device, error) {
	baud := o.BaudRate
	if baud <= 0 {
		baud = 9600
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return port, nil
}

// ListSerialPorts enumerates serial ports the host currently exposes.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// --- USB line printer device file (e.g. /dev/usb/lp0) ---

// FileOpener opens a device file for writing.
type FileOpener struct{}

type fileDevice struct {
	f *os.File
}

func (d *fileDevice) Write(p []byte) (int, error) { return d.f.Write(p) }
func (d *fileDevice) Close() error                { return d.f.Close() }

// Open opens the device file write-only.
func (FileOpener) Open(_ context.Context, name string) (Device, error) {
	f, err := os.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open device file %s: %w", name, err)
	}
	return &fileDevice{f: f}, nil
}

// --- Network printer (raw TCP, e.g. 192.168.1.100:9100) ---

// TCPOpener dials raw print ports.
type TCPOpener struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

type tcpDevice struct {
	net.Conn
	writeTimeout time.Duration
}

func (d *tcpDevice) Write(p []byte) (int, error) {
	if d.writeTimeout > 0 {
		_ = d.Conn.SetWriteDeadline(time.Now().Add(d.writeTimeout))
	}
	return d.Conn.Write(p)
}

// Open dials the printer address.
func (o TCPOpener) Open(ctx context.Context, address string) (Device, error) {
	timeout := o.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}
	wt := o.WriteTimeout
	if wt <= 0 {
		wt = 10 * time.Second
	}
	return &tcpDevice{Conn: conn, writeTimeout: wt}, nil
}

// NewOpener returns the opener for a printer type: "serial", "usb" or "network".
// "none" and "" return nil, meaning direct printing is unavailable.
func NewOpener(printerType string, baudRate int) (DeviceOpener, error) {
	switch printerType {
	case "serial":
		return SerialOpener{BaudRate: baudRate}, nil
	case "usb":
		return FileOpener{}, nil
	case "network":
		return TCPOpener{}, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("printer: unknown printer type %q (use serial, usb, network, or none)", printerType)
	}
}
