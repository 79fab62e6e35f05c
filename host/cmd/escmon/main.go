// escmon is the interactive monitor console for the motor controller. It
// drives the serial debug link, optionally streams telemetry to websocket
// clients and an MQTT broker, and exposes the controller commands as a
// shell.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"
	"github.com/google/shlex"

	"goesc/core"
	"goesc/host/esc"
	"goesc/host/serial"
	"goesc/host/telemetry"
	"goesc/protocol"
)

var (
	device   = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud     = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	listen   = flag.String("listen", "", "Address for websocket telemetry (e.g. :8080), empty disables")
	broker   = flag.String("mqtt", "", "MQTT broker URL (e.g. tcp://localhost:1883), empty disables")
	topic    = flag.String("topic", "esc/telemetry", "MQTT telemetry topic")
	pollMS   = flag.Int("poll", 100, "Telemetry poll interval in milliseconds")
	execCmds = flag.String("e", "", "Run semicolon-separated commands and exit")
)

const rspTimeout = 2 * time.Second

func main() {
	flag.Parse()
	defer glog.Flush()

	port, err := serial.Open(&serial.Config{Device: *device, Baud: *baud, ReadTimeout: 100})
	if err != nil {
		fmt.Fprintf(os.Stderr, "escmon: %v\n", err)
		os.Exit(1)
	}

	client := esc.ConnectPort(port)
	defer client.Close()

	if err := client.Ping(rspTimeout); err != nil {
		fmt.Fprintf(os.Stderr, "escmon: controller not responding on %s: %v\n", *device, err)
		os.Exit(1)
	}

	hub := telemetry.NewHub()
	defer hub.Close()
	client.SetStatusListener(func(st protocol.Status) {
		hub.Publish(telemetry.FromStatus(st))
	})
	client.StartPolling(time.Duration(*pollMS) * time.Millisecond)

	if *listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/telemetry", telemetry.WebsocketHandler(hub))
		go func() {
			glog.Infof("telemetry websocket on ws://%s/telemetry", *listen)
			if err := http.ListenAndServe(*listen, mux); err != nil {
				glog.Errorf("websocket server: %v", err)
			}
		}()
	}

	if *broker != "" {
		pub, err := telemetry.NewMQTTPublisher(*broker, "escmon", *topic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "escmon: %v\n", err)
			os.Exit(1)
		}
		pub.Attach(hub)
		defer pub.Close()
	}

	shell := buildShell(client)

	if *execCmds != "" {
		runScript(shell, *execCmds)
		return
	}

	shell.Println("escmon - motor controller console (type 'help' for commands)")
	shell.Run()
}

// runScript executes semicolon-separated commands non-interactively.
func runScript(shell *ishell.Shell, script string) {
	for _, cmd := range strings.Split(script, ";") {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		args, err := shlex.Split(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "escmon: bad command %q: %v\n", cmd, err)
			os.Exit(1)
		}
		if err := shell.Process(args...); err != nil {
			fmt.Fprintf(os.Stderr, "escmon: %v\n", err)
			os.Exit(1)
		}
	}
}

func buildShell(client *esc.Client) *ishell.Shell {
	shell := ishell.New()

	shell.AddCmd(&ishell.Cmd{
		Name: "spin",
		Help: "spin <rpm> - command a speed, negative for reverse",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: spin <rpm>"))
				return
			}
			rpm, err := strconv.ParseInt(c.Args[0], 10, 32)
			if err != nil {
				c.Err(fmt.Errorf("bad rpm %q: %w", c.Args[0], err))
				return
			}
			if err := client.SetSpeed(int32(rpm)); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop - cut power and float the motor",
		Func: func(c *ishell.Context) {
			if err := client.Stop(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "slope",
		Help: "slope <rpm-per-tick> - set the regulator slew rate",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: slope <rpm-per-tick>"))
				return
			}
			v, err := strconv.ParseUint(c.Args[0], 10, 32)
			if err != nil {
				c.Err(fmt.Errorf("bad slope %q: %w", c.Args[0], err))
				return
			}
			if err := client.SetSlope(uint32(v)); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "status - print a controller snapshot",
		Func: func(c *ishell.Context) {
			st, err := client.Status(rspTimeout)
			if err != nil {
				c.Err(err)
				return
			}
			printStatus(c, st)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "stats - print control loop runtime metrics",
		Func: func(c *ishell.Context) {
			st, err := client.Stats(rspTimeout)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("fast: ticks=%d last=%dus avg=%dus\n",
				st.Fast.TickCount, st.Fast.LastExecUS, st.Fast.AvgExecUS)
			c.Printf("low:  ticks=%d last=%dus avg=%dus\n",
				st.Low.TickCount, st.Low.LastExecUS, st.Low.AvgExecUS)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "power",
		Help: "power - print bus voltage, current and board temperature",
		Func: func(c *ishell.Context) {
			p, err := client.Power(rspTimeout)
			if err != nil {
				c.Err(err)
				return
			}
			if p.BusMilliVolts == 0 && p.BusMilliAmps == 0 && p.TempDeciC == 0 {
				c.Println("no power monitor fitted")
				return
			}
			c.Printf("bus: %.3fV %.3fA  temp: %.1fC\n",
				float64(p.BusMilliVolts)/1000, float64(p.BusMilliAmps)/1000,
				float64(p.TempDeciC)/10)
			if p.Latched {
				c.Println("supervision fault latched (use clearfault)")
			}
			if p.ReadErrs > 0 {
				c.Printf("sensor read errors: %d\n", p.ReadErrs)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "ping",
		Help: "ping - check link liveness",
		Func: func(c *ishell.Context) {
			start := time.Now()
			if err := client.Ping(rspTimeout); err != nil {
				c.Err(err)
				return
			}
			c.Printf("pong (%.1fms)\n", float64(time.Since(start).Microseconds())/1000)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "version",
		Help: "version - print the firmware version",
		Func: func(c *ishell.Context) {
			v, err := client.Version(rspTimeout)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(v)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "events",
		Help: "events - dump and clear the controller event ring",
		Func: func(c *ishell.Context) {
			events, err := client.Events(300 * time.Millisecond)
			if err != nil {
				c.Err(err)
				return
			}
			if len(events) == 0 {
				c.Println("no events recorded")
				return
			}
			for _, e := range events {
				c.Printf("%-12s step=%d t=%dus v1=%d v2=%d\n",
					eventName(e.Type), e.Step, e.TimeUS, e.Value1, e.Value2)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "debug",
		Help: "debug on|off - toggle firmware debug prints",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 || (c.Args[0] != "on" && c.Args[0] != "off") {
				c.Err(fmt.Errorf("usage: debug on|off"))
				return
			}
			if err := client.DebugEnable(c.Args[0] == "on"); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "clearfault",
		Help: "clearfault - clear a latched fault",
		Func: func(c *ishell.Context) {
			if err := client.ClearFault(); err != nil {
				c.Err(err)
			}
		},
	})

	return shell
}

func printStatus(c *ishell.Context, st protocol.Status) {
	dir := "CW"
	if !st.Clockwise {
		dir = "CCW"
	}
	c.Printf("mode=%s step=%d dir=%s duty=%.3f\n",
		core.MotorMode(st.Mode).String(), st.Step, dir, float64(st.DutyMilli)/1000)
	c.Printf("rpm: command=%d target=%d measured=%d\n",
		st.CommandRPM, st.TargetRPM, st.MeasuredRPM)
	c.Printf("bemf: period=%dus valid=%v\n", st.PeriodUS, st.BEMFValid)
	c.Printf("counters: zero-cross=%d commutations=%d\n", st.ZeroCrossings, st.Commutations)
	if st.FaultCode != 0 {
		c.Printf("fault: %s\n", faultName(st.FaultCode))
	}
}

func faultName(code uint32) string {
	switch code {
	case core.FaultStall:
		return "STALL"
	case core.FaultOvercurrent:
		return "OVERCURRENT"
	case core.FaultOvervoltage:
		return "OVERVOLTAGE"
	case core.FaultUndervoltage:
		return "UNDERVOLTAGE"
	case core.FaultOvertemp:
		return "OVERTEMP"
	}
	return "code " + strconv.FormatUint(uint64(code), 10)
}

func eventName(t uint8) string {
	switch t {
	case core.EvtZeroCross:
		return "ZERO_CROSS"
	case core.EvtCommutate:
		return "COMMUTATE"
	case core.EvtHandover:
		return "HANDOVER"
	case core.EvtRampDone:
		return "RAMP_DONE"
	case core.EvtModeChange:
		return "MODE_CHANGE"
	case core.EvtFault:
		return "FAULT"
	case core.EvtReverse:
		return "REVERSE"
	}
	return "UNKNOWN"
}
