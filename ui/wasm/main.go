//go:build js && wasm
// +build js,wasm

// WebAssembly bridge for a browser-based ESC console. A page using the
// WebSerial API can frame commands and decode telemetry without
// reimplementing the link protocol in JavaScript.
package main

import (
	"encoding/hex"
	"syscall/js"

	"goesc/protocol"
)

var (
	txOut *protocol.ScratchOutput
	tx    *protocol.Framer

	rxFifo    *protocol.Fifo
	rx        *protocol.Framer
	responses []interface{}
)

func main() {
	txOut = protocol.NewScratchOutput()
	tx = protocol.NewFramer(txOut, nil)

	rxFifo = protocol.NewFifo(1024)
	rx = protocol.NewFramer(protocol.NewScratchOutput(), handleResponse)
	rx.Promiscuous = true

	js.Global().Set("escWasm", js.ValueOf(map[string]interface{}{
		"version":       protocol.Version,
		"crc16":         js.FuncOf(crc16Wrapper),
		"encodePing":    js.FuncOf(encodeSimple(protocol.CmdPing)),
		"encodeVersion": js.FuncOf(encodeSimple(protocol.CmdVersion)),
		"encodeStop":    js.FuncOf(encodeSimple(protocol.CmdStop)),
		"encodeStatus":  js.FuncOf(encodeSimple(protocol.CmdStatus)),
		"encodeStats":   js.FuncOf(encodeSimple(protocol.CmdStats)),
		"encodeEvents":  js.FuncOf(encodeSimple(protocol.CmdEvents)),
		"encodeSetSpeed": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if len(args) != 1 {
				return errorResult("expected 1 argument: rpm")
			}
			rpm := int32(args[0].Int())
			return frameCommand(protocol.CmdSetSpeed, func(out protocol.OutputBuffer) {
				protocol.EncodeVLQInt(out, rpm)
			})
		}),
		"encodeSetSlope": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if len(args) != 1 {
				return errorResult("expected 1 argument: rpm per tick")
			}
			slope := uint32(args[0].Int())
			return frameCommand(protocol.CmdSetSlope, func(out protocol.OutputBuffer) {
				protocol.EncodeVLQUint(out, slope)
			})
		}),
		"encodeClearFault":  js.FuncOf(encodeSimple(protocol.CmdClearFault)),
		"encodePower":       js.FuncOf(encodeSimple(protocol.CmdPower)),
		"feedResponseBytes": js.FuncOf(feedResponseBytesWrapper),
	}))

	// Keep the program running
	select {}
}

// encodeSimple frames an argumentless command.
func encodeSimple(msgID uint8) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		return frameCommand(msgID, nil)
	}
}

// frameCommand encodes one command frame and advances the local sequence,
// returning the frame as a hex string for the page to write to the port.
func frameCommand(msgID uint8, args func(out protocol.OutputBuffer)) interface{} {
	txOut.Reset()
	tx.Send(msgID, args)
	tx.AdvanceSeq()
	return js.ValueOf(map[string]interface{}{
		"frame": hex.EncodeToString(txOut.Result()),
	})
}

// feedResponseBytesWrapper pushes received hex bytes through the decoder and
// returns every response message completed by them.
// Args: hex string
// Returns: {responses: [...]} or {error: string}
func feedResponseBytesWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return errorResult("expected 1 argument: hex bytes")
	}
	raw, err := hex.DecodeString(args[0].String())
	if err != nil {
		return errorResult("invalid hex: " + err.Error())
	}

	responses = responses[:0]
	rxFifo.Write(raw)
	rx.Receive(rxFifo)
	return js.ValueOf(map[string]interface{}{
		"responses": responses,
	})
}

func handleResponse(msgID uint8, args *[]byte) error {
	switch msgID {
	case protocol.RspPong:
		responses = append(responses, map[string]interface{}{"type": "pong"})

	case protocol.RspVersion:
		v, err := protocol.DecodeVLQString(args)
		if err != nil {
			return err
		}
		responses = append(responses, map[string]interface{}{
			"type":    "version",
			"version": v,
		})

	case protocol.RspStatus:
		st, err := protocol.DecodeStatus(args)
		if err != nil {
			return err
		}
		responses = append(responses, map[string]interface{}{
			"type":        "status",
			"mode":        int(st.Mode),
			"step":        int(st.Step),
			"clockwise":   st.Clockwise,
			"faultCode":   int(st.FaultCode),
			"duty":        float64(st.DutyMilli) / 1000,
			"commandRpm":  int(st.CommandRPM),
			"targetRpm":   int(st.TargetRPM),
			"measuredRpm": int(st.MeasuredRPM),
			"periodUs":      int(st.PeriodUS),
			"bemfValid":     st.BEMFValid,
			"zeroCrossings": int(st.ZeroCrossings),
			"commutations":  int(st.Commutations),
		})

	case protocol.RspStats:
		st, err := protocol.DecodeStats(args)
		if err != nil {
			return err
		}
		responses = append(responses, map[string]interface{}{
			"type":       "stats",
			"fastTicks":  int(st.Fast.TickCount),
			"fastLastUs": int(st.Fast.LastExecUS),
			"fastAvgUs":  int(st.Fast.AvgExecUS),
			"lowTicks":   int(st.Low.TickCount),
			"lowLastUs":  int(st.Low.LastExecUS),
			"lowAvgUs":   int(st.Low.AvgExecUS),
		})

	case protocol.RspEvent:
		evt, err := protocol.DecodeEvent(args)
		if err != nil {
			return err
		}
		responses = append(responses, map[string]interface{}{
			"type":      "event",
			"eventType": int(evt.Type),
			"step":      int(evt.Step),
			"timeUs":    int(evt.TimeUS),
			"value1":    int(evt.Value1),
			"value2":    int(evt.Value2),
		})

	case protocol.RspPower:
		p, err := protocol.DecodePower(args)
		if err != nil {
			return err
		}
		responses = append(responses, map[string]interface{}{
			"type":     "power",
			"busVolts": float64(p.BusMilliVolts) / 1000,
			"busAmps":  float64(p.BusMilliAmps) / 1000,
			"tempC":    float64(p.TempDeciC) / 10,
			"latched":  p.Latched,
			"readErrs": int(p.ReadErrs),
		})

	case protocol.RspLog:
		msg, err := protocol.DecodeVLQString(args)
		if err != nil {
			return err
		}
		responses = append(responses, map[string]interface{}{
			"type":    "log",
			"message": msg,
		})

	default:
		// Unknown response: drop the rest of the frame.
		*args = (*args)[:0]
	}
	return nil
}

// crc16Wrapper computes the link checksum over hex bytes.
// Args: hex string
// Returns: {crc: int} or {error: string}
func crc16Wrapper(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return errorResult("expected 1 argument: hex bytes")
	}
	raw, err := hex.DecodeString(args[0].String())
	if err != nil {
		return errorResult("invalid hex: " + err.Error())
	}
	return js.ValueOf(map[string]interface{}{
		"crc": int(protocol.CRC16(raw)),
	})
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}
