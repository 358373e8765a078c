package ids

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/UNH-DistSyS/UNH-SEM/log"
)

// ID represents a worker identity in format of Pool.Worker
type ID struct {
	PoolId   uint8
	WorkerId uint8
}

func NewID(pool, worker uint8) *ID {
	return &ID{PoolId: pool, WorkerId: worker}
}

// GetIDFromString parses ids such as "1.3". Malformed input is logged and yields nil.
func GetIDFromString(id string) *ID {
	if !strings.Contains(id, ".") {
		log.Warningf("id %s does not contain \".\"\n", id)
		return nil
	}
	idParts := strings.Split(id, ".")
	if len(idParts) != 2 {
		log.Errorf("Could not parse ID %s", id)
		return nil
	}
	pool, err := strconv.ParseUint(idParts[0], 10, 8)
	if err != nil {
		log.Errorf("Failed to convert Pool %s to int\n", idParts[0])
		return nil
	}
	worker, err := strconv.ParseUint(idParts[1], 10, 8)
	if err != nil {
		log.Errorf("Failed to convert Worker %s to int\n", idParts[1])
		return nil
	}
	return &ID{PoolId: uint8(pool), WorkerId: uint8(worker)}
}

// Pool returns Pool ID component
func (i *ID) Pool() uint8 {
	return i.PoolId
}

// Worker returns Worker ID component
func (i *ID) Worker() uint8 {
	return i.WorkerId
}

// String names the worker the way thread pools name their threads, e.g. pool-1-thread-3
func (i ID) String() string {
	return fmt.Sprintf("pool-%d-thread-%d", i.PoolId, i.WorkerId)
}

func (i ID) Int() int {
	return int(i.PoolId)<<8 | int(i.WorkerId)
}
