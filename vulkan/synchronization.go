package vulkan

/*
#include <vulkan/vulkan.h>
*/
import "C"
import (
	"fmt"
)

type Semaphore struct {
	Handle C.VkSemaphore
}

type Fence struct {
	Handle C.VkFence
}

func CreateSemaphore(device *Device) (*Semaphore, error) {
	semaphoreInfo := C.VkSemaphoreCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_SEMAPHORE_CREATE_INFO,
	}
	
	var semaphore C.VkSemaphore
	result := C.vkCreateSemaphore(device.Device, &semaphoreInfo, nil, &semaphore)
	if result != C.VK_SUCCESS {
		return nil, fmt.Errorf("failed to create semaphore: %d", result)
	}
	
	return &Semaphore{Handle: semaphore}, nil
}

func (s *Semaphore) Destroy(device *Device) {
	C.vkDestroySemaphore(device.Device, s.Handle, nil)
}

func CreateFence(device *Device, signaled bool) (*Fence, error) {
	flags := C.VkFenceCreateFlags(0)
	if signaled {
		flags = C.VK_FENCE_CREATE_SIGNALED_BIT
	}
	
	fenceInfo := C.VkFenceCreateInfo{
		sType: C.VK_STRUCTURE_TYPE_FENCE_CREATE_INFO,
		flags: flags,
	}
	
	var fence C.VkFence
	result := C.vkCreateFence(device.Device, &fenceInfo, nil, &fence)
	if result != C.VK_SUCCESS {
		return nil, fmt.Errorf("failed to create fence: %d", result)
	}
	
	return &Fence{Handle: fence}, nil
}

func (f *Fence) Destroy(device *Device) {
	C.vkDestroyFence(device.Device, f.Handle, nil)
}

func (f *Fence) Wait(device *Device, timeout uint64) error {
	result := C.vkWaitForFences(device.Device, 1, &f.Handle, C.VK_TRUE, C.uint64_t(timeout))
	if result != C.VK_SUCCESS {
		return fmt.Errorf("failed to wait for fence: %d", result)
	}
	return nil
}

func (f *Fence) Reset(device *Device) error {
	result := C.vkResetFences(device.Device, 1, &f.Handle)
	if result != C.VK_SUCCESS {
		return fmt.Errorf("failed to reset fence: %d", result)
	}
	return nil
}

func SubmitQueue(queue C.VkQueue, commandBuffers []CommandBuffer, waitSemaphores []C.VkSemaphore, signalSemaphores []C.VkSemaphore, fence *Fence) error {
	cmdBufferHandles := make([]C.VkCommandBuffer, len(commandBuffers))
	for i, cb := range commandBuffers {
		cmdBufferHandles[i] = cb.Handle
	}
	
	waitStages := make([]C.VkPipelineStageFlags, len(waitSemaphores))
	for i := range waitStages {
		waitStages[i] = C.VK_PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT
	}
	
	var fenceHandle C.VkFence
	if fence != nil {
		fenceHandle = fence.Handle
	}
	
	submitInfo := C.VkSubmitInfo{
		sType:              C.VK_STRUCTURE_TYPE_SUBMIT_INFO,
		commandBufferCount: C.uint32_t(len(cmdBufferHandles)),
		pCommandBuffers:    &cmdBufferHandles[0],
	}
	if len(waitSemaphores) > 0 {
		submitInfo.waitSemaphoreCount = C.uint32_t(len(waitSemaphores))
		submitInfo.pWaitSemaphores = &waitSemaphores[0]
		submitInfo.pWaitDstStageMask = &waitStages[0]
	}
	if len(signalSemaphores) > 0 {
		submitInfo.signalSemaphoreCount = C.uint32_t(len(signalSemaphores))
		submitInfo.pSignalSemaphores = &signalSemaphores[0]
	}
	
	result := C.vkQueueSubmit(queue, 1, &submitInfo, fenceHandle)
	if result != C.VK_SUCCESS {
		return fmt.Errorf("failed to submit draw command buffer: %d", result)
	}
	
	return nil
}

// PipelineBarrier issues the transfer->AS-build, AS-write->AS-read, or
// AS-write->AS-write barriers the GPU mirror and acceleration-structure
// builder depend on between a vertex/index upload and the refit that
// consumes it.
func PipelineBarrier(cmd CommandBuffer, srcStage, dstStage C.VkPipelineStageFlags, srcAccess, dstAccess C.VkAccessFlags) {
	barrier := C.VkMemoryBarrier{
		sType:         C.VK_STRUCTURE_TYPE_MEMORY_BARRIER,
		srcAccessMask: srcAccess,
		dstAccessMask: dstAccess,
	}
	C.vkCmdPipelineBarrier(cmd.Handle, srcStage, dstStage, 0, 1, &barrier, 0, nil, 0, nil)
}

// BarrierTransferToASBuild orders vertex/index/instance uploads before
// the acceleration-structure build that reads them.
func BarrierTransferToASBuild(cmd CommandBuffer) {
	PipelineBarrier(cmd,
		C.VK_PIPELINE_STAGE_TRANSFER_BIT,
		C.VK_PIPELINE_STAGE_ACCELERATION_STRUCTURE_BUILD_BIT_KHR,
		C.VK_ACCESS_TRANSFER_WRITE_BIT,
		C.VK_ACCESS_ACCELERATION_STRUCTURE_READ_BIT_KHR|C.VK_ACCESS_ACCELERATION_STRUCTURE_WRITE_BIT_KHR)
}

// BarrierASBuildToASRead orders a build/refit before ray traversal reads
// the structure.
func BarrierASBuildToASRead(cmd CommandBuffer) {
	PipelineBarrier(cmd,
		C.VK_PIPELINE_STAGE_ACCELERATION_STRUCTURE_BUILD_BIT_KHR,
		C.VK_PIPELINE_STAGE_RAY_TRACING_SHADER_BIT_KHR,
		C.VK_ACCESS_ACCELERATION_STRUCTURE_WRITE_BIT_KHR,
		C.VK_ACCESS_ACCELERATION_STRUCTURE_READ_BIT_KHR)
}

// BarrierASWriteToASWrite separates successive BLAS refits that alias
// the same scratch buffer.
func BarrierASWriteToASWrite(cmd CommandBuffer) {
	PipelineBarrier(cmd,
		C.VK_PIPELINE_STAGE_ACCELERATION_STRUCTURE_BUILD_BIT_KHR,
		C.VK_PIPELINE_STAGE_ACCELERATION_STRUCTURE_BUILD_BIT_KHR,
		C.VK_ACCESS_ACCELERATION_STRUCTURE_WRITE_BIT_KHR,
		C.VK_ACCESS_ACCELERATION_STRUCTURE_WRITE_BIT_KHR)
}
