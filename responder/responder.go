// Package responder implements the RDM responder side of the protocol: the
// state machine a DMX512/RDM device runs to answer DISC_*, the handful of
// GET/SET parameters ANSI E1.20 requires of every responder, and a handler
// hook for anything device-specific.
package responder

import (
	"errors"
	"time"

	"github.com/TKFRvisionOfficial/dmx-rdm-go/driver"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/rdmproto"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/telemetry"
	"github.com/TKFRvisionOfficial/dmx-rdm-go/uid"
)

// defaultQueueCapacity is used when Config.QueueCapacity is left at zero.
const defaultQueueCapacity = 16

// Config configures a new Responder.
type Config struct {
	UID uid.UID
	// SupportedPIDs lists optional PIDs this responder's Handler answers,
	// beyond the ones ANSI E1.20 requires and Responder handles itself.
	// Reported verbatim by SUPPORTED_PARAMETERS.
	SupportedPIDs []uint16

	DeviceModelID         uint16
	ProductCategory       uint16
	SoftwareVersionID     uint32
	SoftwareVersionLabel  string

	// QueueCapacity bounds the queued-message and status-message backlogs.
	// A device that produces status messages faster than a controller
	// drains them drops the oldest ones, the fixed-capacity discipline the
	// rest of this module follows throughout. Zero means
	// defaultQueueCapacity.
	QueueCapacity int

	// Logger receives one Debug event per dispatch, if set. A nil Logger is
	// a no-op.
	Logger *telemetry.Logger
}

// internallySupportedPIDs are handled by Responder itself and always
// reported by SUPPORTED_PARAMETERS ahead of Config.SupportedPIDs.
var internallySupportedPIDs = []uint16{rdmproto.PIDQueuedMessage, rdmproto.PIDStatusMessages}

// Context exposes the mutable device state a Handler may need to read or
// update while answering a request Responder does not handle itself.
type Context struct {
	DMXStartAddress *rdmproto.DmxStartAddress
	DMXFootprint    *uint16
	DiscoveryMuted  *bool
	MessageCount    uint8
}

// ResultKind tags the variant of a Handler's Result.
type ResultKind int

const (
	ResultAcknowledged ResultKind = iota
	ResultAcknowledgedOverflow
	ResultNotAcknowledged
	ResultAcknowledgedTimer
	ResultNoResponse
	ResultCustom
)

// Result is what a Handler returns for a request it chose to answer.
// Construct one with the Acknowledged/NotAcknowledged/... helpers below
// rather than setting fields directly.
type Result struct {
	Kind ResultKind

	data         rdmproto.DataPack
	nackReason   rdmproto.NackReason
	timerHundredMillis uint16
	custom       rdmproto.ResponseData
}

// Acknowledged answers the request with an ACK carrying data.
func Acknowledged(data rdmproto.DataPack) Result {
	return Result{Kind: ResultAcknowledged, data: data}
}

// AcknowledgedOverflow answers with ACK_OVERFLOW: data is only part of the
// full response, and the controller is expected to repeat the same GET to
// fetch the rest.
func AcknowledgedOverflow(data rdmproto.DataPack) Result {
	return Result{Kind: ResultAcknowledgedOverflow, data: data}
}

// NotAcknowledged answers with NACK_REASON.
func NotAcknowledged(reason rdmproto.NackReason) Result {
	return Result{Kind: ResultNotAcknowledged, nackReason: reason}
}

// AcknowledgedTimer answers with ACK_TIMER: the result isn't ready yet, and
// the controller should poll QUEUED_MESSAGE again after roughly
// hundredMillis*100ms.
func AcknowledgedTimer(hundredMillis uint16) Result {
	return Result{Kind: ResultAcknowledgedTimer, timerHundredMillis: hundredMillis}
}

// NoResponse suppresses any reply, appropriate when the request can't be
// serviced and silence (rather than a NACK) is the correct RDM behavior.
func NoResponse() Result {
	return Result{Kind: ResultNoResponse}
}

// Custom hands Responder a fully-built ResponseData to send as-is.
func Custom(resp rdmproto.ResponseData) Result {
	return Result{Kind: ResultCustom, custom: resp}
}

// Handler answers requests for PIDs Responder does not handle itself. The
// default behavior for an unhandled PID, if a nil Handler is passed to
// Poll or HandleRequest, is NotAcknowledged(NackUnsupportedCommandClass).
type Handler interface {
	HandleRDM(request rdmproto.RequestData, ctx *Context) (Result, error)
}

type unfinishedRequest struct {
	pid       uint16
	iteration uint16
}

// AnswerKind tags the variant of an Answer.
type AnswerKind int

const (
	AnswerNoResponse AnswerKind = iota
	AnswerResponse
	AnswerDiscoveryResponse
)

// Answer is what HandleRequest produces: a normal RDM response, a
// DISC_UNIQUE_BRANCH discovery response (which is framed completely
// differently on the wire), or nothing.
type Answer struct {
	Kind             AnswerKind
	Response         rdmproto.ResponseData
	DiscoveryUID     uid.UID
}

// Responder is the per-device RDM state machine: discovery mute state, DMX
// footprint/start address, the queued- and status-message backlogs, and
// dispatch for the PIDs ANSI E1.20 requires every responder to implement.
type Responder struct {
	config Config
	uid    uid.UID
	logger *telemetry.Logger

	discoveryMuted  bool
	dmxStartAddress rdmproto.DmxStartAddress
	dmxFootprint    uint16
	dmxLevels       []byte

	queueCapacity int

	unfinished *unfinishedRequest

	messageQueue        []rdmproto.ResponseData
	statusQueue         []rdmproto.StatusMessage
	lastQueuedMessage   *rdmproto.ResponseData
	lastStatusMessage    rdmproto.DataPack
}

// New builds a Responder. It starts unmuted, with no DMX start address
// assigned (NoDMXAddress) and a one-slot DMX footprint.
func New(config Config) *Responder {
	capacity := config.QueueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	return &Responder{
		config:          config,
		uid:             config.UID,
		logger:          config.Logger,
		dmxStartAddress: rdmproto.NoDMXAddress(),
		dmxFootprint:    1,
		queueCapacity:   capacity,
	}
}

// UID returns the responder's address.
func (r *Responder) UID() uid.UID { return r.uid }

// DiscoveryMuted reports whether the responder currently answers
// DISC_UNIQUE_BRANCH.
func (r *Responder) DiscoveryMuted() bool { return r.discoveryMuted }

// DMXStartAddress returns the responder's current DMX_START_ADDRESS value.
func (r *Responder) DMXStartAddress() rdmproto.DmxStartAddress { return r.dmxStartAddress }

// SetDMXFootprint changes how many DMX slots DEVICE_INFO reports this
// responder occupying. Call it before serving traffic; it does not itself
// move dmxStartAddress.
func (r *Responder) SetDMXFootprint(slots uint16) { r.dmxFootprint = slots }

// DMXLevels returns the level packet from the most recently polled DMX512
// frame, or nil if none has arrived yet. Poll updates this unconditionally;
// a responder with no use for DMX levels is free to never call it.
func (r *Responder) DMXLevels() []byte { return r.dmxLevels }

// messageCount is the queued-message backlog depth, echoed in every
// response's message-count field so a controller knows to poll
// QUEUED_MESSAGE.
func (r *Responder) messageCount() uint8 {
	if len(r.messageQueue) > 255 {
		return 255
	}
	return uint8(len(r.messageQueue))
}

// EnqueueMessage adds a pre-built response to the queued-message backlog,
// for use by a Handler that answered with AcknowledgedTimer and now has the
// real result ready. The oldest entry is dropped if the queue is full.
func (r *Responder) EnqueueMessage(resp rdmproto.ResponseData) {
	if len(r.messageQueue) >= r.queueCapacity {
		r.messageQueue = r.messageQueue[1:]
	}
	r.messageQueue = append(r.messageQueue, resp)
}

// AddStatusMessage appends a message to the status backlog STATUS_MESSAGES
// and QUEUED_MESSAGE serve from, dropping the oldest entry if full.
func (r *Responder) AddStatusMessage(msg rdmproto.StatusMessage) {
	if len(r.statusQueue) >= r.queueCapacity {
		r.statusQueue = r.statusQueue[1:]
	}
	r.statusQueue = append(r.statusQueue, msg)
}

func (r *Responder) context() *Context {
	mc := r.messageCount()
	return &Context{
		DMXStartAddress: &r.dmxStartAddress,
		DMXFootprint:    &r.dmxFootprint,
		DiscoveryMuted:  &r.discoveryMuted,
		MessageCount:    mc,
	}
}

func nackAnswer(request rdmproto.RequestData, reason rdmproto.NackReason, messageCount uint8) Answer {
	reasonBytes := reason.Bytes()
	data, _ := rdmproto.DataPackFromSlice(reasonBytes[:])
	resp, err := request.BuildResponse(rdmproto.ResponseTypeNackReason, data, messageCount)
	if err != nil {
		return Answer{Kind: AnswerNoResponse}
	}
	return Answer{Kind: AnswerResponse, Response: resp}
}

func ackAnswer(request rdmproto.RequestData, data rdmproto.DataPack, messageCount uint8) Answer {
	resp, err := request.BuildResponse(rdmproto.ResponseTypeAck, data, messageCount)
	if err != nil {
		return Answer{Kind: AnswerNoResponse}
	}
	return Answer{Kind: AnswerResponse, Response: resp}
}

func overflowAnswer(request rdmproto.RequestData, data rdmproto.DataPack, messageCount uint8) Answer {
	resp, err := request.BuildResponse(rdmproto.ResponseTypeAckOverflow, data, messageCount)
	if err != nil {
		return Answer{Kind: AnswerNoResponse}
	}
	return Answer{Kind: AnswerResponse, Response: resp}
}

// HandleRequest runs request through the responder's dispatch table,
// answering PIDs ANSI E1.20 requires internally and handing everything else
// to handler. It returns AnswerNoResponse for any request not addressed to
// this responder (a different device UID, or a manufacturer broadcast from
// a different manufacturer), matching how a real responder stays silent
// rather than answering on another device's behalf.
func (r *Responder) HandleRequest(request rdmproto.RequestData, handler Handler) (Answer, error) {
	if mfr, ok := request.Destination.AsManufacturerBroadcast(); ok {
		if mfr != r.uid.Manufacturer() {
			return Answer{Kind: AnswerNoResponse}, nil
		}
	} else if dev, ok := request.Destination.AsDevice(); ok {
		if !dev.Equal(r.uid) {
			return Answer{Kind: AnswerNoResponse}, nil
		}
	}

	if request.CommandClass == rdmproto.DiscoveryCommand &&
		request.ParameterID != rdmproto.PIDDiscUniqueBranch &&
		request.ParameterID != rdmproto.PIDDiscMute &&
		request.ParameterID != rdmproto.PIDDiscUnMute {
		return Answer{Kind: AnswerNoResponse}, nil
	}

	if r.unfinished != nil && r.unfinished.pid != request.ParameterID {
		r.unfinished = nil
	}

	r.logger.Debug("dispatching request", "pid", request.ParameterID, "command_class", request.CommandClass, "tn", request.TransactionNumber)

	switch request.ParameterID {
	case rdmproto.PIDDiscUniqueBranch:
		return r.handleDiscUniqueBranch(request), nil
	case rdmproto.PIDDiscMute:
		return r.handleDiscMuteUnmute(request, true), nil
	case rdmproto.PIDDiscUnMute:
		return r.handleDiscMuteUnmute(request, false), nil
	case rdmproto.PIDSupportedParameters:
		return r.handleSupportedParameters(request), nil
	case rdmproto.PIDDeviceInfo:
		return r.handleDeviceInfo(request), nil
	case rdmproto.PIDSoftwareVersionLabel:
		return r.handleSoftwareVersionLabel(request), nil
	case rdmproto.PIDDMXStartAddress:
		return r.handleDMXStartAddress(request), nil
	case rdmproto.PIDQueuedMessage:
		return r.handleQueuedMessage(request), nil
	case rdmproto.PIDStatusMessages:
		return r.handleStatusMessages(request), nil
	default:
		return r.handleCustom(request, handler)
	}
}

// Poll is the responder's driver-owning entry point: it reads exactly one
// frame from drv (if any arrives before deadline), classifies it by start
// code, and either updates the DMX level buffer or decodes and dispatches
// an RDM request through handler, sending whatever Answer results back out
// on drv. It is meant to be called once per host loop iteration; a timeout
// with no frame pending is not an error.
func (r *Responder) Poll(drv driver.Driver, handler Handler, deadline time.Duration) (Answer, error) {
	raw, err := drv.ReceiveRDM(deadline)
	if err != nil {
		if errors.Is(err, driver.ErrTimeout) {
			return Answer{Kind: AnswerNoResponse}, nil
		}
		return Answer{}, err
	}
	if len(raw) == 0 {
		return Answer{Kind: AnswerNoResponse}, nil
	}

	if raw[0] == rdmproto.SCDMXNull {
		r.dmxLevels = append(r.dmxLevels[:0], raw[1:]...)
		return Answer{Kind: AnswerNoResponse}, nil
	}

	req, err := rdmproto.DecodeRequest(raw)
	if err != nil {
		// Malformed or foreign traffic is dropped silently, per E1.20
		// §6.3.2 — it is not this responder's place to NACK a frame it
		// couldn't even parse.
		r.logger.Debug("dropping frame that failed to decode as RDM", "error", err)
		return Answer{Kind: AnswerNoResponse}, nil
	}

	answer, err := r.HandleRequest(req, handler)
	if err != nil {
		return Answer{}, err
	}

	switch answer.Kind {
	case AnswerResponse:
		frame, err := rdmproto.EncodeResponse(answer.Response)
		if err != nil {
			return Answer{}, err
		}
		if err := drv.SendRDM(frame); err != nil {
			return Answer{}, err
		}
	case AnswerDiscoveryResponse:
		if err := drv.SendRDM(rdmproto.EncodeDiscoveryResponse(answer.DiscoveryUID, 0)); err != nil {
			return Answer{}, err
		}
	}
	return answer, nil
}

// packUint48 packs a 6-byte big-endian UID field into a uint64, the same
// representation uid.UID.Uint64 uses, without going through the UID
// constructor's broadcast-rejection — DISC_UNIQUE_BRANCH's lower/upper
// bounds are raw range endpoints, not addresses that must round-trip.
func packUint48(b []byte) uint64 {
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

func (r *Responder) handleDiscUniqueBranch(request rdmproto.RequestData) Answer {
	if request.CommandClass != rdmproto.DiscoveryCommand {
		return nackAnswer(request, rdmproto.NackUnsupportedCommandClass, r.messageCount())
	}
	if request.ParameterData.Len() != 12 {
		return Answer{Kind: AnswerNoResponse}
	}

	body := request.ParameterData.Bytes()
	lower := packUint48(body[:6])
	upper := packUint48(body[6:12])
	own := r.uid.Uint64()

	if !r.discoveryMuted && own >= lower && own <= upper {
		return Answer{Kind: AnswerDiscoveryResponse, DiscoveryUID: r.uid}
	}
	return Answer{Kind: AnswerNoResponse}
}

func (r *Responder) handleDiscMuteUnmute(request rdmproto.RequestData, mute bool) Answer {
	if request.CommandClass != rdmproto.DiscoveryCommand {
		return nackAnswer(request, rdmproto.NackUnsupportedCommandClass, r.messageCount())
	}
	if request.ParameterData.Len() != 0 {
		return Answer{Kind: AnswerNoResponse}
	}

	r.discoveryMuted = mute

	resp := rdmproto.DiscoveryMuteResponse{}
	return ackAnswer(request, resp.Serialize(), r.messageCount())
}

func (r *Responder) handleSupportedParameters(request rdmproto.RequestData) Answer {
	if ans, ok := r.rejectBadGet(request); !ok {
		return ans
	}

	const maxPIDsPerResponse = rdmproto.MaxPDL / 2

	iteration := uint16(0)
	if r.unfinished != nil && r.unfinished.pid == rdmproto.PIDSupportedParameters {
		iteration = r.unfinished.iteration
	}

	all := make([]uint16, 0, len(internallySupportedPIDs)+len(r.config.SupportedPIDs))
	all = append(all, internallySupportedPIDs...)
	all = append(all, r.config.SupportedPIDs...)

	start := int(iteration) * maxPIDsPerResponse
	if start > len(all) {
		start = len(all)
	}
	end := start + maxPIDsPerResponse
	if end > len(all) {
		end = len(all)
	}

	data := rdmproto.SerializeSupportedParameters(all[start:end])

	if end != len(all) {
		r.unfinished = &unfinishedRequest{pid: rdmproto.PIDSupportedParameters, iteration: iteration + 1}
		return overflowAnswer(request, data, r.messageCount())
	}

	r.unfinished = nil
	return ackAnswer(request, data, r.messageCount())
}

func (r *Responder) handleDeviceInfo(request rdmproto.RequestData) Answer {
	if ans, ok := r.rejectBadGet(request); !ok {
		return ans
	}

	info := rdmproto.DeviceInfo{
		DeviceModelID:   r.config.DeviceModelID,
		ProductCategory: r.config.ProductCategory,
		SoftwareVersion: r.config.SoftwareVersionID,
		DMXFootprint:    r.dmxFootprint,
		DMXPersonality:  1,
		DMXStartAddress: r.dmxStartAddress,
		SubDeviceCount:  0,
		SensorCount:     0,
	}
	return ackAnswer(request, info.Serialize(), r.messageCount())
}

func (r *Responder) handleSoftwareVersionLabel(request rdmproto.RequestData) Answer {
	if ans, ok := r.rejectBadGet(request); !ok {
		return ans
	}
	return ackAnswer(request, rdmproto.SerializeSoftwareVersionLabel(r.config.SoftwareVersionLabel), r.messageCount())
}

func (r *Responder) handleDMXStartAddress(request rdmproto.RequestData) Answer {
	mc := r.messageCount()

	switch request.CommandClass {
	case rdmproto.GetCommand:
		return ackAnswer(request, r.dmxStartAddress.Serialize(), mc)
	case rdmproto.SetCommand:
		if request.ParameterData.Len() != 2 {
			return nackAnswer(request, rdmproto.NackFormatError, mc)
		}
		addr, err := rdmproto.DeserializeDMXStartAddress(request.ParameterData.Bytes())
		if err != nil {
			return nackAnswer(request, rdmproto.NackDataOutOfRange, mc)
		}
		r.dmxStartAddress = addr
		return ackAnswer(request, rdmproto.NewDataPack(), mc)
	default:
		return nackAnswer(request, rdmproto.NackUnsupportedCommandClass, mc)
	}
}

func (r *Responder) handleQueuedMessage(request rdmproto.RequestData) Answer {
	if ans, ok := r.rejectBadGet(request); !ok {
		return ans
	}
	mc := r.messageCount()

	statusRequested, err := rdmproto.DeserializeStatusType(request.ParameterData.Bytes())
	if err != nil {
		return nackAnswer(request, rdmproto.NackDataOutOfRange, mc)
	}
	if statusRequested == rdmproto.StatusNone {
		return nackAnswer(request, rdmproto.NackDataOutOfRange, mc)
	}

	if statusRequested == rdmproto.StatusGetLastMessage {
		if r.lastQueuedMessage == nil {
			return ackAnswer(request, rdmproto.NewDataPack(), mc)
		}
		resp := *r.lastQueuedMessage
		resp.MessageCount = mc
		resp.TransactionNumber = request.TransactionNumber
		return Answer{Kind: AnswerResponse, Response: resp}
	}

	switch statusRequested {
	case rdmproto.StatusWarning, rdmproto.StatusError, rdmproto.StatusAdvisory:
	default:
		return nackAnswer(request, rdmproto.NackDataOutOfRange, mc)
	}

	var resp rdmproto.ResponseData
	if len(r.messageQueue) > 0 {
		resp = r.messageQueue[len(r.messageQueue)-1]
		r.messageQueue = r.messageQueue[:len(r.messageQueue)-1]
		resp.MessageCount = r.messageCount()
		resp.TransactionNumber = request.TransactionNumber
	} else {
		data := r.popFilteredStatuses(statusRequested)
		r.lastStatusMessage = data
		built, err := request.BuildResponse(rdmproto.ResponseTypeAck, data, 0)
		if err != nil {
			return Answer{Kind: AnswerNoResponse}
		}
		resp = built
		resp.ParameterID = rdmproto.PIDStatusMessages
	}

	r.lastQueuedMessage = &resp
	return Answer{Kind: AnswerResponse, Response: resp}
}

func (r *Responder) handleStatusMessages(request rdmproto.RequestData) Answer {
	if ans, ok := r.rejectBadGet(request); !ok {
		return ans
	}
	mc := r.messageCount()

	statusRequested, err := rdmproto.DeserializeStatusType(request.ParameterData.Bytes())
	if err != nil {
		return nackAnswer(request, rdmproto.NackFormatError, mc)
	}

	switch statusRequested {
	case rdmproto.StatusNone:
		return ackAnswer(request, rdmproto.NewDataPack(), mc)
	case rdmproto.StatusGetLastMessage:
		return ackAnswer(request, r.lastStatusMessage, mc)
	case rdmproto.StatusWarning, rdmproto.StatusError, rdmproto.StatusAdvisory:
		data := r.popFilteredStatuses(statusRequested)
		r.lastStatusMessage = data
		return ackAnswer(request, data, mc)
	default:
		return nackAnswer(request, rdmproto.NackDataOutOfRange, mc)
	}
}

// popFilteredStatuses removes and serializes every queued status message at
// or above the requested severity, up to however many fit in one DataPack.
func (r *Responder) popFilteredStatuses(filter rdmproto.StatusType) rdmproto.DataPack {
	var matched []rdmproto.StatusMessage
	remaining := r.statusQueue[:0]

	for _, msg := range r.statusQueue {
		if uint8(msg.StatusType)&0x0F >= uint8(filter) {
			matched = append(matched, msg)
		} else {
			remaining = append(remaining, msg)
		}
	}
	r.statusQueue = remaining

	return rdmproto.SerializeStatusMessages(matched)
}

func (r *Responder) handleCustom(request rdmproto.RequestData, handler Handler) (Answer, error) {
	mc := r.messageCount()

	if handler == nil {
		return nackAnswer(request, rdmproto.NackUnsupportedCommandClass, mc), nil
	}

	result, err := handler.HandleRDM(request, r.context())
	if err != nil {
		return Answer{}, err
	}

	switch result.Kind {
	case ResultAcknowledged:
		return ackAnswer(request, result.data, mc), nil
	case ResultAcknowledgedOverflow:
		return overflowAnswer(request, result.data, mc), nil
	case ResultNotAcknowledged:
		return nackAnswer(request, result.nackReason, mc), nil
	case ResultAcknowledgedTimer:
		data, _ := rdmproto.DataPackFromSlice([]byte{byte(result.timerHundredMillis >> 8), byte(result.timerHundredMillis)})
		resp, err := request.BuildResponse(rdmproto.ResponseTypeAckTimer, data, mc)
		if err != nil {
			return Answer{Kind: AnswerNoResponse}, nil
		}
		return Answer{Kind: AnswerResponse, Response: resp}, nil
	case ResultCustom:
		return Answer{Kind: AnswerResponse, Response: result.custom}, nil
	default:
		return Answer{Kind: AnswerNoResponse}, nil
	}
}

// rejectBadGet applies the checks every required GET-only parameter shares:
// no response to a broadcast request, NACK if the request wasn't a GET, and
// NACK if it targets a sub-device (none are implemented). It returns ok=true
// when the caller should proceed with its own handling.
func (r *Responder) rejectBadGet(request rdmproto.RequestData) (Answer, bool) {
	if request.Destination.IsBroadcast() {
		return Answer{Kind: AnswerNoResponse}, false
	}

	mc := r.messageCount()
	if request.CommandClass != rdmproto.GetCommand {
		return nackAnswer(request, rdmproto.NackUnsupportedCommandClass, mc), false
	}
	if request.SubDevice != 0 {
		return nackAnswer(request, rdmproto.NackSubDeviceOutOfRange, mc), false
	}
	return Answer{}, true
}
