package amluart

import (
	"errors"
	"fmt"
)

const resetBits = ControlRstRx | ControlRstTx | ControlClrErr

// serve is the interrupt service loop of one enabled port. It resets and
// enables the UART, then re-evaluates readiness on every interrupt until the
// wait is canceled or fails.
func (p *Port) serve(task *serviceTask) {
	defer close(task.done)

	p.log.Debug("service loop start")

	p.mu.Lock()
	ctrl := p.regs.Read32(RegControl)
	p.regs.Write32(RegControl, ctrl|resetBits)
	ctrl &^= resetBits
	p.regs.Write32(RegControl, ctrl)

	ctrl |= ControlTxEn | ControlRxEn | ControlTxIntEn | ControlRxIntEn
	p.regs.Write32(RegControl, ctrl)

	// interrupt on every rx and tx byte
	modify(p.regs, RegMisc, MiscIrqCountMask, 1<<MiscTxIrqCountPos|1<<MiscRxIrqCountPos)
	p.mu.Unlock()

	for {
		err := task.irq.Wait()
		if err == nil {
			p.evaluate()
			continue
		}

		if errors.Is(err, ErrInterruptCanceled) {
			p.log.Debug("service loop canceled")
		} else {
			err = fmt.Errorf("%w: %w", ErrInterruptWaitFailed, err)
			p.log.Error("service loop stopped", "error", err)
			p.mu.Lock()
			p.loopErr = err
			p.mu.Unlock()
		}
		break
	}

	// stop accepting data on the way out
	p.mu.Lock()
	modify(p.regs, RegControl, ControlTxEn|ControlRxEn, 0)
	p.mu.Unlock()

	p.log.Debug("service loop done")
}
