package engine

// positionState 是单次 Simulate 独占的持仓状态，不跨 run 共享。
type positionState struct {
	dir        Direction
	entryPrice float64
	entryBar   int
}

// armed 判断止损/止盈是否生效：仅在开仓之后的 bar 上检查。
func (p positionState) armed(i int) bool {
	return p.dir != Flat && i > p.entryBar
}

// stopPrice 返回止损价以及该 bar 是否触发。
func (p positionState) stopPrice(high, low, distance float64) (float64, bool) {
	switch p.dir {
	case Long:
		price := p.entryPrice - distance
		return price, low <= price
	case Short:
		price := p.entryPrice + distance
		return price, high >= price
	}
	return 0, false
}

// targetPrice 返回止盈价以及该 bar 是否触发。
func (p positionState) targetPrice(high, low, distance float64) (float64, bool) {
	switch p.dir {
	case Long:
		price := p.entryPrice + distance
		return price, high >= price
	case Short:
		price := p.entryPrice - distance
		return price, low <= price
	}
	return 0, false
}

type simulation struct {
	shares float64
	pos    positionState
	res    Result
}

func (s *simulation) open(dir Direction, bar int, price float64) {
	s.pos = positionState{dir: dir, entryPrice: price, entryBar: bar}
	if dir == Long {
		s.res.LongEvents++
	} else {
		s.res.ShortEvents++
	}
}

func (s *simulation) close(bar int, price float64, reason ExitReason) {
	pos := s.pos
	if pos.dir == Flat {
		return
	}
	var pnl float64
	if pos.dir == Long {
		pnl = (price - pos.entryPrice) * s.shares
	} else {
		pnl = (pos.entryPrice - price) * s.shares
	}
	rate := 0.0
	if pos.entryPrice != 0 {
		rate = pnl / pos.entryPrice * 100
	}
	if pos.dir == Long {
		s.res.LongPnL[bar] += pnl
		s.res.LongReturns = append(s.res.LongReturns, rate)
		s.res.LongEvents++
	} else {
		s.res.ShortPnL[bar] += pnl
		s.res.ShortReturns = append(s.res.ShortReturns, rate)
		s.res.ShortEvents++
	}
	s.res.Trades = append(s.res.Trades, Trade{
		Direction:  pos.dir,
		EntryBar:   pos.entryBar,
		ExitBar:    bar,
		EntryPrice: pos.entryPrice,
		ExitPrice:  price,
		PnL:        pnl,
		ReturnRate: rate,
		Reason:     reason,
	})
	s.pos = positionState{}
}

// Simulate 按时间顺序回放信号，任意时刻至多持有一个方向的仓位。
//
// 每根 bar（i = 1..N-1）的处理顺序固定：多头入场、空头入场、多头离场、空头离场、止损、止盈。
// 反向入场信号会在同一 bar 以开盘价先平掉原仓位再开新仓；最后一根 bar 的离场信号恒为真。
// 相同输入必然得到相同输出，函数不持有任何跨调用状态。
func Simulate(p Prices, sig Signals, risk RiskParams) (Result, error) {
	n, err := checkShape(p, sig)
	if err != nil {
		return Result{}, err
	}
	if err := risk.Validate(); err != nil {
		return Result{}, err
	}
	buyEntry := Lag(sig.BuyEntry, EntryLag, false)
	sellEntry := Lag(sig.SellEntry, EntryLag, false)
	buyExit := Lag(sig.BuyExit, ExitLag, true)
	sellExit := Lag(sig.SellExit, ExitLag, true)

	s := &simulation{
		shares: risk.Shares,
		res: Result{
			LongPnL:   make([]float64, n),
			ShortPnL:  make([]float64, n),
			Positions: make([]Direction, n),
		},
	}
	for i := 1; i < n; i++ {
		fill := p.Open[i]

		if buyEntry[i] && s.pos.dir != Long {
			if s.pos.dir == Short {
				s.close(i, fill, ExitReversal)
			}
			s.open(Long, i, fill)
		}
		if sellEntry[i] && s.pos.dir != Short {
			if s.pos.dir == Long {
				s.close(i, fill, ExitReversal)
			}
			s.open(Short, i, fill)
		}
		if buyExit[i] && s.pos.dir == Long {
			s.close(i, fill, exitReason(sig.BuyExit, i, n))
		}
		if sellExit[i] && s.pos.dir == Short {
			s.close(i, fill, exitReason(sig.SellExit, i, n))
		}

		if risk.StopLoss > 0 && s.pos.armed(i) {
			if price, hit := s.pos.stopPrice(p.High[i], p.Low[i], risk.StopLoss); hit {
				s.close(i, price, ExitStopLoss)
				s.res.StopLossCount++
			}
		}
		if risk.TakeProfit > 0 && s.pos.armed(i) {
			if price, hit := s.pos.targetPrice(p.High[i], p.Low[i], risk.TakeProfit); hit {
				s.close(i, price, ExitTakeProfit)
				s.res.TakeProfitCount++
			}
		}
		s.res.Positions[i] = s.pos.dir
	}
	return s.res, nil
}

// exitReason 区分真实离场信号与末根 bar 的强制平仓。
func exitReason(raw []bool, i, n int) ExitReason {
	if i == n-1 {
		src := i - ExitLag
		if src < 0 || !raw[src] {
			return ExitEndOfData
		}
	}
	return ExitSignal
}
