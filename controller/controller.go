// Package controller implements the RDM controller role: sending
// GET/SET/DISCOVERY requests over a driver.Driver, matching responses to
// requests by transaction number, and the typed request helpers for every
// PID this module's responder package answers.
package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/driver"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/rdmproto"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/telemetry"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
)

// ErrMalformedResponse is returned when a response's ACK_TIMER/NACK_REASON
// payload is not the 2-byte field those response types require.
var ErrMalformedResponse = errors.New("controller: malformed response payload")

// errRetryable is returned internally by awaitResponse for anything request
// should retry with a fresh transaction number rather than surface to the
// caller: a transport-level timeout or framing error, a frame that failed to
// decode (checksum mismatch), or a frame that decoded but didn't match the
// outstanding request (wrong transaction number, source, destination or
// command class). Once request runs out of retries it returns the last such
// error, which wraps errRetryable together with its cause (driver.ErrTimeout,
// for example); callers match the cause, as errRetryable is unexported.
var errRetryable = errors.New("controller: no matching response within deadline")

// NotReadyError is returned for an ACK_TIMER response: the responder
// accepted the request but the result isn't ready. EstimatedWait is the
// responder's own estimate of how long to wait before retrying, converted
// from its wire units of 100ms.
type NotReadyError struct {
	EstimatedWait time.Duration
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("controller: response not ready, retry after %s", e.EstimatedWait)
}

// NotAcknowledgedError is returned for a NACK_REASON response.
type NotAcknowledgedError struct {
	Reason rdmproto.NackReason
}

func (e *NotAcknowledgedError) Error() string {
	return fmt.Sprintf("controller: request not acknowledged: %s", e.Reason)
}

// ResponseKind tags the variant of a Response.
type ResponseKind int

const (
	ResponseComplete ResponseKind = iota
	ResponseIncomplete
	ResponseBroadcast
)

// Response is the result of a successful GET/SET/DISC_MUTE-class request.
type Response struct {
	Kind         ResponseKind
	ParameterID  uint16
	MessageCount uint8
	Data         rdmproto.DataPack
}

// Config configures a Controller.
type Config struct {
	UID uid.UID
	// MaxRetries is how many times a timed-out request is resent before
	// giving up. Zero means one attempt, no retries.
	MaxRetries int
	// Logger receives a Warn event per retry or NACK and a Debug event per
	// discovery collision and per completed discovery pass, if set. A nil
	// Logger is a no-op.
	Logger *telemetry.Logger
}

// DefaultConfig returns a configuration for u with three retries before a
// request gives up.
func DefaultConfig(u uid.UID) Config {
	return Config{UID: u, MaxRetries: 3}
}

// Controller is an RDM controller bound to one driver.Driver. It is not
// safe for concurrent use — RDM's half-duplex request/response discipline
// means only one request can be outstanding at a time anyway.
type Controller struct {
	drv               driver.Driver
	uid               uid.UID
	maxRetries        int
	transactionNumber uint8
	lastMessageCount  uint8
	receiveTimeout    time.Duration
	logger            *telemetry.Logger
}

// New builds a Controller over drv. receiveTimeout bounds how long it waits
// for a response to a non-broadcast request before retrying or giving up.
func New(drv driver.Driver, config Config, receiveTimeout time.Duration) *Controller {
	return &Controller{
		drv:            drv,
		uid:            config.UID,
		maxRetries:     config.MaxRetries,
		receiveTimeout: receiveTimeout,
		logger:         config.Logger,
	}
}

// LastMessageCount returns the message-count field of the most recently
// received response, signaling how many messages are waiting in the
// responder's queue.
func (c *Controller) LastMessageCount() uint8 { return c.lastMessageCount }

func (c *Controller) nextTransactionNumber() uint8 {
	c.transactionNumber++
	return c.transactionNumber
}

// request sends one RDM request and, unless it targets a broadcast
// address, waits for and validates the matching response. A response that
// times out, fails to decode (framing/checksum), or doesn't match the
// outstanding request's transaction number, source or command class is
// retried up to maxRetries times with a fresh transaction number each try,
// matching how a controller can't tell a lost request from a lost or
// garbled response and must simply try again.
func (c *Controller) request(class rdmproto.RequestCommandClass, dest uid.Address, pid uint16, data rdmproto.DataPack) (Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		tn := c.nextTransactionNumber()

		req := rdmproto.RequestData{
			Destination:      dest,
			Source:            c.uid,
			TransactionNumber: tn,
			CommandClass:      class,
			ParameterID:       pid,
			ParameterData:     data,
		}

		frame, err := rdmproto.EncodeRequest(req)
		if err != nil {
			return Response{}, err
		}
		if err := c.drv.SendRDM(frame); err != nil {
			return Response{}, err
		}

		if dest.IsBroadcast() {
			return Response{Kind: ResponseBroadcast, ParameterID: pid}, nil
		}

		src, _ := dest.AsDevice()
		resp, err := c.awaitResponse(tn, src, class.ResponseClass())
		if errors.Is(err, errRetryable) {
			c.logger.Warn("request retrying", "pid", pid, "attempt", attempt, "dest", dest)
			lastErr = err
			continue
		}
		return resp, err
	}

	return Response{}, lastErr
}

// errChecksumMismatch and errResponseMismatch distinguish the two retryable
// conditions awaitResponse can hit once a frame is on the wire, for logging;
// both fold into errRetryable for request's outer loop.
var errChecksumMismatch = errors.New("controller: response failed to decode")
var errResponseMismatch = errors.New("controller: response transaction number, command class or source did not match the request")

// awaitResponse waits for a response matching tn, wantSource and wantClass.
// Per spec's error-handling table, a transport timeout or framing error, a
// frame that fails to decode (checksum mismatch), and a frame that decodes
// but doesn't match the outstanding request's transaction number, command
// class or source are all retryable: the caller should retry with a fresh
// transaction number rather than keep waiting on the current one. A frame
// simply not addressed to us (someone else's traffic on a shared bus) is
// silently ignored instead, since it was never a response to this request.
// The whole wait is bounded by a single deadline computed once, not re-armed
// on every such frame.
func (c *Controller) awaitResponse(tn uint8, wantSource uid.UID, wantClass rdmproto.ResponseCommandClass) (Response, error) {
	deadline := time.Now().Add(c.receiveTimeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Response{}, fmt.Errorf("%w: %w", errRetryable, driver.ErrTimeout)
		}

		raw, err := c.drv.ReceiveRDM(remaining)
		if errors.Is(err, driver.ErrTimeout) || errors.Is(err, driver.ErrFraming) {
			return Response{}, fmt.Errorf("%w: %w", errRetryable, err)
		}
		if err != nil {
			return Response{}, err
		}

		resp, err := rdmproto.DecodeResponse(raw)
		if err != nil {
			return Response{}, fmt.Errorf("%w: %w: %v", errRetryable, errChecksumMismatch, err)
		}
		if resp.TransactionNumber != tn || resp.CommandClass != wantClass || !resp.Source.Equal(wantSource) {
			return Response{}, fmt.Errorf("%w: %w", errRetryable, errResponseMismatch)
		}
		dev, ok := resp.Destination.AsDevice()
		if !ok || !dev.Equal(c.uid) {
			continue
		}

		c.lastMessageCount = resp.MessageCount

		switch resp.ResponseType {
		case rdmproto.ResponseTypeAck:
			return Response{Kind: ResponseComplete, ParameterID: resp.ParameterID, MessageCount: resp.MessageCount, Data: resp.ParameterData}, nil
		case rdmproto.ResponseTypeAckOverflow:
			return Response{Kind: ResponseIncomplete, ParameterID: resp.ParameterID, MessageCount: resp.MessageCount, Data: resp.ParameterData}, nil
		case rdmproto.ResponseTypeAckTimer:
			if resp.ParameterData.Len() != 2 {
				return Response{}, ErrMalformedResponse
			}
			b := resp.ParameterData.Bytes()
			wait := time.Duration(uint16(b[0])<<8|uint16(b[1])) * 100 * time.Millisecond
			return Response{}, &NotReadyError{EstimatedWait: wait}
		case rdmproto.ResponseTypeNackReason:
			if resp.ParameterData.Len() != 2 {
				return Response{}, ErrMalformedResponse
			}
			b := resp.ParameterData.Bytes()
			reason := rdmproto.NackReason(uint16(b[0])<<8 | uint16(b[1]))
			c.logger.Warn("request not acknowledged", "pid", resp.ParameterID, "reason", reason)
			return Response{}, &NotAcknowledgedError{Reason: reason}
		default:
			return Response{}, ErrMalformedResponse
		}
	}
}

// Get sends a GET request.
func (c *Controller) Get(dest uid.Address, pid uint16, data rdmproto.DataPack) (Response, error) {
	return c.request(rdmproto.GetCommand, dest, pid, data)
}

// Set sends a SET request.
func (c *Controller) Set(dest uid.Address, pid uint16, data rdmproto.DataPack) (Response, error) {
	return c.request(rdmproto.SetCommand, dest, pid, data)
}

// DiscUniqueBranch sends a DISC_UNIQUE_BRANCH to the given UID range and
// waits for a discovery response. It returns driver.ErrTimeout if nothing
// answers, and rdmproto.ErrDiscoveryCollision if more than one responder
// answered at once.
func (c *Controller) DiscUniqueBranch(lower, upper uid.UID) (uid.UID, error) {
	lowerBytes := lower.Bytes()
	upperBytes := upper.Bytes()

	data := rdmproto.NewDataPack()
	_ = data.Append(lowerBytes[:])
	_ = data.Append(upperBytes[:])

	req := rdmproto.RequestData{
		Destination:       uid.Broadcast(),
		Source:             c.uid,
		TransactionNumber:  c.nextTransactionNumber(),
		CommandClass:       rdmproto.DiscoveryCommand,
		ParameterID:        rdmproto.PIDDiscUniqueBranch,
		ParameterData:      data,
	}

	frame, err := rdmproto.EncodeRequest(req)
	if err != nil {
		return uid.UID{}, err
	}
	if err := c.drv.SendRDM(frame); err != nil {
		return uid.UID{}, err
	}

	raw, err := c.drv.ReceiveRDM(c.receiveTimeout)
	if err != nil {
		return uid.UID{}, err
	}

	return rdmproto.DecodeDiscoveryResponse(raw)
}

// DiscMute sends DISC_MUTE.
func (c *Controller) DiscMute(dest uid.Address) (*rdmproto.DiscoveryMuteResponse, error) {
	return c.discMuteRequest(dest, rdmproto.PIDDiscMute)
}

// DiscUnMute sends DISC_UN_MUTE.
func (c *Controller) DiscUnMute(dest uid.Address) (*rdmproto.DiscoveryMuteResponse, error) {
	return c.discMuteRequest(dest, rdmproto.PIDDiscUnMute)
}

func (c *Controller) discMuteRequest(dest uid.Address, pid uint16) (*rdmproto.DiscoveryMuteResponse, error) {
	resp, err := c.request(rdmproto.DiscoveryCommand, dest, pid, rdmproto.NewDataPack())
	if err != nil {
		return nil, err
	}
	if resp.Kind == ResponseBroadcast {
		return nil, nil
	}

	parsed, err := rdmproto.DeserializeDiscoveryMuteResponse(resp.Data.Bytes())
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// GetIdentify requests IDENTIFY_DEVICE.
func (c *Controller) GetIdentify(dest uid.UID) (bool, error) {
	resp, err := c.Get(uid.Device(dest), rdmproto.PIDIdentifyDevice, rdmproto.NewDataPack())
	if err != nil {
		return false, err
	}
	return rdmproto.DeserializeIdentify(resp.Data.Bytes())
}

// SetIdentify sets IDENTIFY_DEVICE.
func (c *Controller) SetIdentify(dest uid.Address, on bool) error {
	_, err := c.Set(dest, rdmproto.PIDIdentifyDevice, rdmproto.SerializeIdentify(on))
	return err
}

// GetSoftwareVersionLabel requests SOFTWARE_VERSION_LABEL.
func (c *Controller) GetSoftwareVersionLabel(dest uid.UID) (string, error) {
	resp, err := c.Get(uid.Device(dest), rdmproto.PIDSoftwareVersionLabel, rdmproto.NewDataPack())
	if err != nil {
		return "", err
	}
	return rdmproto.DeserializeSoftwareVersionLabel(resp.Data.Bytes())
}

// GetDMXStartAddress requests DMX_START_ADDRESS.
func (c *Controller) GetDMXStartAddress(dest uid.UID) (rdmproto.DmxStartAddress, error) {
	resp, err := c.Get(uid.Device(dest), rdmproto.PIDDMXStartAddress, rdmproto.NewDataPack())
	if err != nil {
		return rdmproto.DmxStartAddress{}, err
	}
	return rdmproto.DeserializeDMXStartAddress(resp.Data.Bytes())
}

// SetDMXStartAddress sets DMX_START_ADDRESS.
func (c *Controller) SetDMXStartAddress(dest uid.Address, address uint16) error {
	start, err := rdmproto.NewDMXStartAddress(address)
	if err != nil {
		return err
	}
	_, err = c.Set(dest, rdmproto.PIDDMXStartAddress, start.Serialize())
	return err
}

// GetDeviceInfo requests DEVICE_INFO.
func (c *Controller) GetDeviceInfo(dest uid.UID) (rdmproto.DeviceInfo, error) {
	resp, err := c.Get(uid.Device(dest), rdmproto.PIDDeviceInfo, rdmproto.NewDataPack())
	if err != nil {
		return rdmproto.DeviceInfo{}, err
	}
	return rdmproto.DeserializeDeviceInfo(resp.Data.Bytes())
}

// GetQueuedMessage requests QUEUED_MESSAGE, filtered by statusRequested.
func (c *Controller) GetQueuedMessage(dest uid.UID, statusRequested rdmproto.StatusType) (Response, error) {
	data, _ := rdmproto.DataPackFromSlice([]byte{byte(statusRequested)})
	return c.Get(uid.Device(dest), rdmproto.PIDQueuedMessage, data)
}

// GetStatusMessages requests STATUS_MESSAGES, filtered by statusRequested.
// Response.Kind is ResponseIncomplete when more messages remain; repeat the
// same request to fetch them.
func (c *Controller) GetStatusMessages(dest uid.UID, statusRequested rdmproto.StatusType) (Response, []rdmproto.StatusMessage, error) {
	data, _ := rdmproto.DataPackFromSlice([]byte{byte(statusRequested)})
	resp, err := c.Get(uid.Device(dest), rdmproto.PIDStatusMessages, data)
	if err != nil {
		return Response{}, nil, err
	}
	messages, err := rdmproto.DeserializeStatusMessages(resp.Data.Bytes())
	if err != nil {
		return Response{}, nil, err
	}
	return resp, messages, nil
}

// GetSupportedParameters requests SUPPORTED_PARAMETERS. Response.Kind is
// ResponseIncomplete when more PIDs remain; repeat the same request to
// fetch them.
func (c *Controller) GetSupportedParameters(dest uid.UID) (Response, []uint16, error) {
	resp, err := c.Get(uid.Device(dest), rdmproto.PIDSupportedParameters, rdmproto.NewDataPack())
	if err != nil {
		return Response{}, nil, err
	}
	pids, err := rdmproto.DeserializeSupportedParameters(resp.Data.Bytes())
	if err != nil {
		return Response{}, nil, err
	}
	return resp, pids, nil
}

// SendDMX transmits a DMX512 level packet directly on the bound driver.
func (c *Controller) SendDMX(levels []byte) error {
	return c.drv.SendDMX(levels)
}
