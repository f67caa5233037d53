package shearwater

import "fmt"

// Samples re-walks the record range and emits the sample stream in
// chronological order. The traversal always restarts from the first record;
// identical buffers produce identical sequences. A nil emit runs the full
// decode for validation only.
//
// Failures abort the traversal immediately; samples already emitted form a
// valid prefix of the stream.
func (p *Parser) Samples(emit func(Sample)) error {
	c, err := p.ensureCache()
	if err != nil {
		return err
	}

	send := func(s Sample) {
		if emit != nil {
			emit(s)
		}
	}

	r := fieldReader{data: p.data}
	tag := c.cfg.tagOffset()

	// Sample interval in seconds. Log version 9 in the native layout made
	// it configurable, stored as milliseconds in opening record 5.
	interval := uint32(10)
	if c.cfg.PNF && c.logVersion >= 9 {
		if c.opening[5] == undefined {
			return fmt.Errorf("%w: opening record 5 with sample interval not found", ErrDataFormat)
		}
		ms := uint32(r.u16(c.opening[5] + 23))
		if r.err != nil || ms == 0 || ms%1000 != 0 {
			return fmt.Errorf("%w: unsupported sample interval (%d ms)", ErrDataFormat, ms)
		}
		interval = ms / 1000
	}

	var (
		elapsed        uint32
		o2Prev, hePrev uint8
	)

	offset := c.cfg.HeaderSize
	length := len(p.data) - c.cfg.FooterSize
	for offset+c.cfg.SampleSize <= length {
		if c.cfg.PNF {
			recType := p.data[offset]
			if recType == recordFinal && p.data[offset+1] == 0xFD {
				break
			}
			if recType == recordInfoEvent {
				p.decodeInfoEvent(c, &r, offset, send)
				offset += c.cfg.SampleSize
				continue
			}
			if recType != recordDiveSample && recType != recordFreediveSample {
				offset += c.cfg.SampleSize
				continue
			}
		}
		if r.allZero(offset, c.cfg.SampleSize) {
			offset += c.cfg.SampleSize
			continue
		}

		recType := uint8(recordDiveSample)
		if c.cfg.PNF {
			recType = p.data[offset]
		}

		if recType == recordFreediveSample {
			elapsed = p.decodeFreediveRecord(c, &r, offset, elapsed, interval, send)
			offset += c.cfg.SampleSize
			continue
		}

		elapsed += interval
		send(Sample{Kind: SampleTime, Time: elapsed})

		// Depth is stored in tenths of the display unit.
		depth := float64(r.u16(offset + tag))
		if c.units == Imperial {
			depth = depth * feet / 10.0
		} else {
			depth = depth / 10.0
		}
		send(Sample{Kind: SampleDepth, Depth: depth})

		// Temperature is a signed byte with an offset bias for negative
		// values, a quirk kept from the original firmware.
		temperature := int(int8(r.u8(offset + tag + 13)))
		if temperature < 0 {
			temperature += 102
			if temperature > 0 {
				temperature = 0
			}
		}
		celsius := float64(temperature)
		if c.units == Imperial {
			celsius = (celsius - 32.0) * (5.0 / 9.0)
		}
		send(Sample{Kind: SampleTemperature, Temperature: celsius})

		status := r.u8(offset + tag + 11)
		if status&statusOpenCircuit == 0 {
			if status&statusExternalPPO2 == 0 {
				if c.calibrated == 0 {
					send(Sample{
						Kind:   SamplePPO2,
						PPO2:   float64(r.u8(offset+tag+6)) / 100.0,
						Sensor: -1,
					})
				} else {
					sensorOffsets := [3]int{12, 14, 15}
					for i, so := range sensorOffsets {
						if c.calibrated&(1<<i) == 0 {
							continue
						}
						send(Sample{
							Kind:   SamplePPO2,
							PPO2:   float64(r.u8(offset+tag+so)) * c.calibration[i],
							Sensor: i,
						})
					}
				}
			}

			var setpoint float64
			if c.cfg.Petrel {
				setpoint = float64(r.u8(offset+tag+18)) / 100.0
			} else if status&statusSetpointHigh != 0 {
				// The Predator stores both setpoints in the opening block.
				setpoint = float64(r.u8(18)) / 100.0
			} else {
				setpoint = float64(r.u8(17)) / 100.0
			}
			send(Sample{Kind: SampleSetpoint, Setpoint: setpoint})
		}

		if c.cfg.Petrel {
			send(Sample{Kind: SampleCNS, CNS: float64(r.u8(offset+tag+22)) / 100.0})
		}

		o2 := r.u8(offset + tag + 7)
		he := r.u8(offset + tag + 8)
		if o2 != o2Prev || he != hePrev {
			idx := c.findMix(o2, he)
			if idx >= len(c.mixes) {
				return fmt.Errorf("%w: gas mix %d/%d not in table", ErrDataFormat, o2, he)
			}
			send(Sample{Kind: SampleGasMix, Mix: idx})
			o2Prev, hePrev = o2, he
		}

		deco := DecoStatus{Kind: DecoNDL}
		if stop := r.u16(offset + tag + 2); stop != 0 {
			deco.Kind = DecoStop
			deco.Depth = float64(stop)
			if c.units == Imperial {
				deco.Depth *= feet
			}
		}
		deco.Time = uint32(r.u8(offset+tag+9)) * 60
		send(Sample{Kind: SampleDeco, Deco: deco})

		// Tank pressure and remaining bottom time arrived with log
		// version 7 (air integration).
		if c.logVersion >= 7 {
			tankOffsets := [2]int{27, 19}
			for tank, to := range tankOffsets {
				pressure, ok := r.u16At(offset + tag + to)
				if !ok || pressure >= 0xFFF0 {
					// 0xFFFC..0xFFFF are unpaired/no-comms sentinels.
					continue
				}
				send(Sample{
					Kind:     SampleTankPressure,
					Tank:     tank,
					Pressure: float64(pressure&0x0FFF) * 2 * psi / bar,
				})
			}
			if rbt := r.u8(offset + tag + 21); rbt < 0xF0 {
				send(Sample{Kind: SampleRBT, RBT: uint32(rbt)})
			}
		}

		offset += c.cfg.SampleSize
	}

	if r.err != nil {
		return fmt.Errorf("%w: sample data out of range: %v", ErrDataFormat, r.err)
	}
	return nil
}

// decodeInfoEvent translates a native-layout info event. Only tag events
// become samples; their embedded timestamp is absolute, so the dive start
// time from opening record 0 turns it into an offset. Out-of-range heading
// or type payloads mark a stale event and are dropped without error.
func (p *Parser) decodeInfoEvent(c *diveCache, r *fieldReader, offset int, send func(Sample)) {
	if r.u8(offset+1) != infoEventTagLog {
		return
	}
	tagTime := r.u32(offset+4) - r.u32(c.opening[0]+12)
	heading := r.u32(offset + 8)
	tagType := r.u32(offset + 12)
	if heading > 360 || tagType > 5 {
		return
	}
	send(Sample{Kind: SampleBookmark, Event: Bookmark{
		Time:    tagTime,
		Type:    tagType,
		Heading: heading,
	}})
}

// decodeFreediveRecord unpacks up to four 8-byte sub-samples from one
// freedive record. Unused trailing sub-samples are zero padded; the first
// all-zero sub-sample ends the record. Depth is recorded as absolute
// pressure in millibar and converted through surface pressure, water
// density and gravity.
func (p *Parser) decodeFreediveRecord(c *diveCache, r *fieldReader, offset int, elapsed, interval uint32, send func(Sample)) uint32 {
	for i := 0; i < 4; i++ {
		idx := offset + i*sampleSizeFreedive
		if r.allZero(idx, sampleSizeFreedive) {
			break
		}

		elapsed += interval
		send(Sample{Kind: SampleTime, Time: elapsed})

		absolute := float64(r.u16(idx + 1))
		depth := (absolute - float64(c.atmospheric)) * (bar / 1000.0) / (float64(c.density) * gravity)
		send(Sample{Kind: SampleDepth, Depth: depth})

		temperature := int16(r.u16(idx + 3))
		send(Sample{Kind: SampleTemperature, Temperature: float64(temperature) / 10.0})
	}
	return elapsed
}
