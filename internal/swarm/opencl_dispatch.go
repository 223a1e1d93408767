//go:build opencl

package swarm

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

// gpuAgent mirrors the kernel's Agent struct byte for byte (48 bytes).
type gpuAgent struct {
	PosX, PosY   float32
	VelX, VelY   float32
	TargetAngle  float32
	CurrentAngle float32
	State        int32
	StateTimer   float32
	DeathTimer   float32
	WasUnder     int32
	Seed         uint32
	_            float32
}

const verifyTolerance = 1e-2

const agentKernelSource = `
#define STATE_IDLE 0
#define STATE_RANDOM_WALK 1
#define STATE_WALL_FOLLOW 2
#define STATE_ESCAPE 3
#define STATE_STOP 4
#define STATE_DEAD 5
#define STATE_REVIVING 6

#define PI 3.14159265f
#define TWO_PI 6.28318531f
#define HALF_PI 1.57079633f
#define TIMER_EPSILON 1e-4f

typedef struct {
    float2 position;
    float2 velocity;
    float targetAngle;
    float currentAngle;
    int state;
    float stateTimer;
    float deathTimer;
    int wasUnder;
    uint seed;
    float pad;
} Agent;

constant float escape_angles[4] = {1.5708f, 2.0944f, 2.618f, 3.1416f};

uint pcg_hash(uint input) {
    uint state = input * 747796405u + 2891336453u;
    uint word = ((state >> ((state >> 28u) + 4u)) ^ state) * 277803737u;
    return (word >> 22u) ^ word;
}

float next_float(uint* seed) {
    *seed = pcg_hash(*seed);
    return (float)(*seed >> 8) * (1.0f / 16777216.0f);
}

float normalize_angle(float a) {
    if (a > 4.0f * PI || a < -4.0f * PI) {
        a = fmod(a, TWO_PI);
    }
    while (a > PI) a -= TWO_PI;
    while (a <= -PI) a += TWO_PI;
    return a;
}

bool under_occluder(float2 p, __global const float4* occluders, int count) {
    for (int i = 0; i < count; i++) {
        float4 r = occluders[i];
        if (p.x >= r.x && p.x <= r.z && p.y >= r.y && p.y <= r.w) {
            return true;
        }
    }
    return false;
}

float2 wall_normal(float2 p, float2 lo, float2 hi, float wr) {
    float2 n = (float2)(0.0f, 0.0f);
    if (p.x < lo.x + wr) n.x = 1.0f;
    if (p.x > hi.x - wr) n.x = -1.0f;
    if (p.y < lo.y + wr) n.y = 1.0f;
    if (p.y > hi.y - wr) n.y = -1.0f;
    return n;
}

__kernel void update_agents(
    __global Agent* agents,
    __global const float4* occluders,
    const int occluderCount,
    const int agentCount,
    const uint frame,
    const float threatX,
    const float threatY,
    const float minX,
    const float minY,
    const float maxX,
    const float maxY,
    const float dt,
    const float threatRadius,
    const float wallRadius,
    const float maxSpeed,
    const float escapeAcceleration,
    const float friction,
    const float rotationSpeed)
{
    uint id = get_global_id(0);
    if (id >= (uint)agentCount) {
        return;
    }
    Agent a = agents[id];
    uint seed = a.seed ^ (frame * 1000u + id);
    float2 lo = (float2)(minX, minY);
    float2 hi = (float2)(maxX, maxY);
    float2 center = (lo + hi) * 0.5f;

    bool under = under_occluder(a.position, occluders, occluderCount);
    bool reactive = a.state != STATE_ESCAPE && a.state != STATE_DEAD && a.state != STATE_REVIVING;
    if (reactive && a.wasUnder && !under) {
        a.state = STATE_STOP;
        a.stateTimer = 0.5f;
        a.wasUnder = 0;
    } else {
        a.wasUnder = under ? 1 : 0;
    }

    float2 toThreat = (float2)(threatX, threatY) - a.position;
    float dist = length(toThreat);
    if (reactive) {
        if (dist < threatRadius * 0.5f) {
            a.state = STATE_ESCAPE;
            a.stateTimer = 0.5f + next_float(&seed) * 0.5f;
            float base = escape_angles[((int)(next_float(&seed) * 4.0f)) % 4];
            float noise = (next_float(&seed) - 0.5f) * 0.5f;
            float threatAngle = atan2(toThreat.y, toThreat.x);
            if (next_float(&seed) < 0.9f) {
                a.targetAngle = threatAngle + PI + base - HALF_PI + noise;
            } else {
                a.targetAngle = threatAngle + (next_float(&seed) - 0.5f) * 0.5f;
            }
        } else if (dist < threatRadius && a.state != STATE_STOP) {
            a.state = STATE_STOP;
            a.stateTimer = 0.3f + next_float(&seed) * 0.5f;
        }
    }

    bool nearWall = a.position.x < lo.x + wallRadius || a.position.x > hi.x - wallRadius ||
                    a.position.y < lo.y + wallRadius || a.position.y > hi.y - wallRadius;

    switch (a.state) {
    case STATE_ESCAPE: {
        float diff = normalize_angle(a.targetAngle - a.currentAngle);
        if (fabs(diff) > 0.1f) {
            a.currentAngle += sign(diff) * rotationSpeed * dt;
        }
        a.velocity += (float2)(cos(a.currentAngle), sin(a.currentAngle)) * escapeAcceleration;
        a.stateTimer -= dt;
        if (a.stateTimer <= TIMER_EPSILON || dist > threatRadius * 2.0f) {
            a.state = STATE_RANDOM_WALK;
        }
        break;
    }
    case STATE_STOP: {
        a.velocity *= 0.8f;
        if (next_float(&seed) < 0.01f) {
            a.currentAngle += (next_float(&seed) - 0.5f) * 0.2f;
        }
        a.stateTimer -= dt;
        if (a.stateTimer <= TIMER_EPSILON) {
            if (!under && !nearWall) {
                a.state = STATE_ESCAPE;
                a.stateTimer = 0.3f + next_float(&seed) * 0.3f;
                float2 fromCenter = a.position - center;
                a.targetAngle = atan2(fromCenter.y, fromCenter.x);
            } else {
                a.state = STATE_RANDOM_WALK;
            }
        }
        break;
    }
    case STATE_RANDOM_WALK: {
        if (next_float(&seed) < 0.03f) {
            a.targetAngle = next_float(&seed) * TWO_PI;
        }
        if (next_float(&seed) < 0.002f) {
            a.state = STATE_STOP;
            a.stateTimer = 0.5f + next_float(&seed) * 1.5f;
        }
        if (next_float(&seed) < 0.01f) {
            if (length(center - a.position) < length(hi - lo) * 0.5f * 0.3f) {
                if (next_float(&seed) < 0.7f) {
                    a.targetAngle = (float)((int)(next_float(&seed) * 4.0f)) * HALF_PI;
                }
            }
        }
        float diff = normalize_angle(a.targetAngle - a.currentAngle);
        a.currentAngle += sign(diff) * fmin(fabs(diff), rotationSpeed * dt * 0.3f);
        a.velocity += (float2)(cos(a.currentAngle), sin(a.currentAngle)) * 0.5f;
        if (nearWall) {
            a.state = STATE_WALL_FOLLOW;
            a.stateTimer = 3.0f + next_float(&seed) * 7.0f;
        }
        if (under) {
            a.velocity *= 0.85f;
            if (next_float(&seed) < 0.03f) {
                a.state = STATE_STOP;
                a.stateTimer = 2.0f + next_float(&seed) * 5.0f;
            }
        }
        break;
    }
    case STATE_WALL_FOLLOW: {
        float2 n = wall_normal(a.position, lo, hi, wallRadius);
        bool corner = n.x != 0.0f && n.y != 0.0f;
        a.stateTimer -= dt;
        if (n.x == 0.0f && n.y == 0.0f) {
            a.state = STATE_RANDOM_WALK;
            break;
        }
        float stopChance = corner ? 0.01f : 0.003f;
        if (next_float(&seed) < stopChance) {
            a.state = STATE_STOP;
            a.stateTimer = corner ? (3.0f + next_float(&seed) * 5.0f) : (1.0f + next_float(&seed) * 2.0f);
        } else if (a.stateTimer <= TIMER_EPSILON && next_float(&seed) < 0.02f) {
            a.state = STATE_RANDOM_WALK;
            a.targetAngle = atan2(n.y, n.x) + (next_float(&seed) - 0.5f) * 1.0f;
            a.velocity += n * 2.0f;
        } else {
            float2 tangent = (float2)(-n.y, n.x);
            if (dot(a.velocity, tangent) < 0.0f) tangent = -tangent;
            if (next_float(&seed) < 0.005f) tangent = -tangent;
            a.targetAngle = atan2(tangent.y, tangent.x);
            a.velocity += tangent * 0.3f;
        }
        break;
    }
    case STATE_DEAD:
        a.velocity = (float2)(0.0f, 0.0f);
        a.deathTimer -= dt;
        if (a.deathTimer <= TIMER_EPSILON) {
            a.state = STATE_REVIVING;
            a.deathTimer = 1.0f;
        }
        break;
    case STATE_REVIVING:
        a.velocity = (float2)(0.0f, 0.0f);
        a.deathTimer -= dt;
        if (a.deathTimer <= TIMER_EPSILON) {
            a.state = STATE_RANDOM_WALK;
            a.deathTimer = 0.0f;
        }
        break;
    default:
        a.state = STATE_RANDOM_WALK;
        break;
    }

    if (a.state != STATE_DEAD && a.state != STATE_REVIVING) {
        float speed = length(a.velocity);
        if (speed > maxSpeed) {
            a.velocity = a.velocity / speed * maxSpeed;
        }
        a.position += a.velocity * dt * 60.0f;
        a.velocity *= friction;
        if (a.position.x < lo.x) { a.position.x = lo.x; a.velocity.x *= -0.5f; }
        if (a.position.x > hi.x) { a.position.x = hi.x; a.velocity.x *= -0.5f; }
        if (a.position.y < lo.y) { a.position.y = lo.y; a.velocity.y *= -0.5f; }
        if (a.position.y > hi.y) { a.position.y = hi.y; a.velocity.y *= -0.5f; }
    }

    a.seed = seed;
    agents[id] = a;
}
`

// OpenCLDispatcher runs the behavior update as one kernel work item per agent.
type OpenCLDispatcher struct {
	context     *cl.Context
	queue       *cl.CommandQueue
	program     *cl.Program
	kernel      *cl.Kernel
	agentBuf    *cl.MemObject
	occluderBuf *cl.MemObject
	capacity    int
	staging     []gpuAgent
	occStaging  [MaxOccluders * 4]float32
	deviceName  string

	verify        bool
	verifyScratch []Agent
}

// NewOpenCLDispatcher picks the first GPU (falling back to a CPU device),
// compiles the agent kernel and allocates buffers for capacity agents.
func NewOpenCLDispatcher(capacity int) (*OpenCLDispatcher, error) {
	if capacity < 1 {
		capacity = 1
	}
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available; ensure a vendor driver is installed and detected by `clinfo`")
	}
	device := firstDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = firstDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	d := &OpenCLDispatcher{
		capacity:   capacity,
		staging:    make([]gpuAgent, capacity),
		deviceName: device.Name(),
	}
	if d.context, err = cl.CreateContext([]*cl.Device{device}); err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	if d.queue, err = d.context.CreateCommandQueue(device, 0); err != nil {
		d.Close()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	if d.program, err = d.context.CreateProgramWithSource([]string{agentKernelSource}); err != nil {
		d.Close()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := d.program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		d.Close()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}
	if d.kernel, err = d.program.CreateKernel("update_agents"); err != nil {
		d.Close()
		return nil, fmt.Errorf("creating OpenCL kernel: %w", err)
	}
	agentBytes := capacity * int(unsafe.Sizeof(gpuAgent{}))
	if d.agentBuf, err = d.context.CreateEmptyBuffer(cl.MemReadWrite, agentBytes); err != nil {
		d.Close()
		return nil, fmt.Errorf("allocating agent buffer: %w", err)
	}
	if d.occluderBuf, err = d.context.CreateEmptyBuffer(cl.MemReadOnly, len(d.occStaging)*4); err != nil {
		d.Close()
		return nil, fmt.Errorf("allocating occluder buffer: %w", err)
	}
	return d, nil
}

func firstDevice(platforms []*cl.Platform, kind cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(kind)
		if err != nil && err != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

func (d *OpenCLDispatcher) Name() string {
	return "opencl (" + d.deviceName + ")"
}

// SetVerify makes every dispatch recompute the tick on the CPU and compare.
func (d *OpenCLDispatcher) SetVerify(on bool) {
	d.verify = on
}

// Dispatch uploads the agents and occluders, runs the kernel and reads the
// agents back. It blocks until the device is done.
func (d *OpenCLDispatcher) Dispatch(agents []Agent, p *Params, occluders []Rect) error {
	n := min(len(agents), p.AgentCount)
	if n <= 0 {
		return nil
	}
	if n > d.capacity {
		return fmt.Errorf("dispatching %d agents: buffer holds %d", n, d.capacity)
	}
	occluders = activeOccluders(p, occluders)

	if d.verify {
		d.verifyScratch = append(d.verifyScratch[:0], agents[:n]...)
		Sequential{}.Dispatch(d.verifyScratch, p, occluders)
	}

	staging := d.staging[:n]
	for i := range staging {
		staging[i] = packAgent(&agents[i])
	}
	for i, r := range occluders {
		d.occStaging[i*4+0] = r.MinX
		d.occStaging[i*4+1] = r.MinY
		d.occStaging[i*4+2] = r.MaxX
		d.occStaging[i*4+3] = r.MaxY
	}

	agentBytes := n * int(unsafe.Sizeof(gpuAgent{}))
	if _, err := d.queue.EnqueueWriteBuffer(d.agentBuf, false, 0, agentBytes, unsafe.Pointer(&staging[0]), nil); err != nil {
		return fmt.Errorf("writing agent buffer: %w", err)
	}
	if len(occluders) > 0 {
		if _, err := d.queue.EnqueueWriteBuffer(d.occluderBuf, false, 0, len(occluders)*16, unsafe.Pointer(&d.occStaging[0]), nil); err != nil {
			return fmt.Errorf("writing occluder buffer: %w", err)
		}
	}
	b := p.Bounds
	if err := d.kernel.SetArgs(
		d.agentBuf,
		d.occluderBuf,
		int32(len(occluders)),
		int32(n),
		p.Frame,
		p.Threat.X, p.Threat.Y,
		b.Min.X, b.Min.Y, b.Max.X, b.Max.Y,
		p.DeltaTime,
		p.ThreatRadius,
		p.WallRadius,
		p.MaxSpeed,
		p.EscapeAcceleration,
		p.Friction,
		p.RotationSpeed,
	); err != nil {
		return fmt.Errorf("setting kernel arguments: %w", err)
	}
	if _, err := d.queue.EnqueueNDRangeKernel(d.kernel, nil, []int{n}, nil, nil); err != nil {
		return fmt.Errorf("enqueueing kernel: %w", err)
	}
	if _, err := d.queue.EnqueueReadBuffer(d.agentBuf, true, 0, agentBytes, unsafe.Pointer(&staging[0]), nil); err != nil {
		return fmt.Errorf("reading agent buffer: %w", err)
	}
	for i := range staging {
		unpackAgent(&staging[i], &agents[i])
	}

	if d.verify {
		return verifyAgents(agents[:n], d.verifyScratch)
	}
	return nil
}

func packAgent(a *Agent) gpuAgent {
	g := gpuAgent{
		PosX:         a.Position.X,
		PosY:         a.Position.Y,
		VelX:         a.Velocity.X,
		VelY:         a.Velocity.Y,
		TargetAngle:  a.TargetAngle,
		CurrentAngle: a.CurrentAngle,
		State:        int32(a.State),
		StateTimer:   a.StateTimer,
		DeathTimer:   a.DeathTimer,
		Seed:         a.RandomSeed,
	}
	if a.WasUnderOccluder {
		g.WasUnder = 1
	}
	return g
}

func unpackAgent(g *gpuAgent, a *Agent) {
	a.Position = Vec2{g.PosX, g.PosY}
	a.Velocity = Vec2{g.VelX, g.VelY}
	a.TargetAngle = g.TargetAngle
	a.CurrentAngle = g.CurrentAngle
	a.State = State(g.State)
	a.StateTimer = g.StateTimer
	a.DeathTimer = g.DeathTimer
	a.WasUnderOccluder = g.WasUnder != 0
	a.RandomSeed = g.Seed
}

// verifyAgents compares device results against the CPU reference.
func verifyAgents(device, host []Agent) error {
	for i := range device {
		dv, hv := &device[i], &host[i]
		if dv.State != hv.State || dv.RandomSeed != hv.RandomSeed {
			return fmt.Errorf("agent %d mismatch: device state=%v seed=%d host state=%v seed=%d",
				i, dv.State, dv.RandomSeed, hv.State, hv.RandomSeed)
		}
		if diff := math.Abs(float64(dv.Position.Dist(hv.Position))); diff > verifyTolerance {
			return fmt.Errorf("agent %d position mismatch: device=%v host=%v diff=%f", i, dv.Position, hv.Position, diff)
		}
	}
	return nil
}

// Close releases every OpenCL object. It is safe on a partly built dispatcher.
func (d *OpenCLDispatcher) Close() {
	if d.occluderBuf != nil {
		d.occluderBuf.Release()
		d.occluderBuf = nil
	}
	if d.agentBuf != nil {
		d.agentBuf.Release()
		d.agentBuf = nil
	}
	if d.kernel != nil {
		d.kernel.Release()
		d.kernel = nil
	}
	if d.program != nil {
		d.program.Release()
		d.program = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.context != nil {
		d.context.Release()
		d.context = nil
	}
}
