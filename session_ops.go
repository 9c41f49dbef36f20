package mq

import "github.com/gonzalop/mq/internal/packets"

// These helpers run exclusively on the session loop goroutine: every
// public Client method reaches them by posting a closure onto cmdCh, never
// by calling them directly.

func (s *session) startPublish(req PublishRequest) *Token[PublishResult] {
	if req.QoS == AtMostOnce {
		tok := newToken[PublishResult]()
		s.enqueueOutbound(&packets.PublishPacket{
			Dup:     req.Dup,
			QoS:     uint8(AtMostOnce),
			Retain:  req.Retain,
			Topic:   req.Topic,
			Payload: req.Payload,
		})
		tok.complete(PublishResult{}, nil)
		return tok
	}

	pf := newPublishFlow(req)
	_, pkt, err := s.mux.register(pf)
	if err != nil {
		pf.token.complete(PublishResult{}, err)
		return pf.token
	}
	s.enqueueOutbound(pkt)
	return pf.token
}

func (s *session) startSubscribe(subs []Subscription) *Token[SubscribeResult] {
	sf := newSubscribeFlow(subs)
	_, pkt, err := s.mux.register(sf)
	if err != nil {
		sf.token.complete(SubscribeResult{}, err)
		return sf.token
	}
	s.enqueueOutbound(pkt)
	return sf.token
}

func (s *session) startUnsubscribe(filters []string) *Token[UnsubscribeResult] {
	uf := newUnsubscribeFlow(filters)
	_, pkt, err := s.mux.register(uf)
	if err != nil {
		uf.token.complete(UnsubscribeResult{}, err)
		return uf.token
	}
	s.enqueueOutbound(pkt)
	return uf.token
}

// startCustomFlow registers an arbitrary flow (the StartFlow escape hatch)
// and returns its id so the caller can later StopFlow it.
func (s *session) startCustomFlow(f flow) (flowID, error) {
	id, pkt, err := s.mux.register(f)
	if err != nil {
		return "", err
	}
	s.enqueueOutbound(pkt)
	return id, nil
}

func (s *session) stopFlow(id flowID) bool {
	return s.mux.stop(id)
}
